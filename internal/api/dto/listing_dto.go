package dto

import (
	"time"

	"github.com/spec-kit/watch-market/internal/domain"
)

// ListingRequest carries the seller-editable fields for create and update.
type ListingRequest struct {
	Brand           string                `json:"brand"`
	Model           string                `json:"model"`
	ReferenceNumber string                `json:"reference_number"`
	Year            *int                  `json:"year"`
	Condition       domain.WatchCondition `json:"condition"`
	PriceCents      int64                 `json:"price_cents"`
	Currency        string                `json:"currency"`
	Description     string                `json:"description"`
	PhotoCount      int                   `json:"photo_count"`
}

// Fields converts the request to domain fields.
func (r ListingRequest) Fields() domain.ListingFields {
	return domain.ListingFields{
		Brand:           r.Brand,
		Model:           r.Model,
		ReferenceNumber: r.ReferenceNumber,
		Year:            r.Year,
		Condition:       r.Condition,
		PriceCents:      r.PriceCents,
		Currency:        r.Currency,
		Description:     r.Description,
		PhotoCount:      r.PhotoCount,
	}
}

// ListingResponse response.
type ListingResponse struct {
	ID              string                `json:"id"`
	SellerID        string                `json:"seller_id"`
	Status          domain.ListingStatus  `json:"status"`
	Brand           string                `json:"brand"`
	Model           string                `json:"model"`
	ReferenceNumber string                `json:"reference_number,omitempty"`
	Year            *int                  `json:"year,omitempty"`
	Condition       domain.WatchCondition `json:"condition,omitempty"`
	PriceCents      int64                 `json:"price_cents"`
	Currency        string                `json:"currency"`
	Description     string                `json:"description,omitempty"`
	PhotoCount      int                   `json:"photo_count"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewListingResponse maps a listing.
func NewListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:              l.ID,
		SellerID:        l.SellerID,
		Status:          l.Status,
		Brand:           l.Brand,
		Model:           l.Model,
		ReferenceNumber: l.ReferenceNumber,
		Year:            l.Year,
		Condition:       l.Condition,
		PriceCents:      l.PriceCents,
		Currency:        l.Currency,
		Description:     l.Description,
		PhotoCount:      l.PhotoCount,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// NewListingResponses maps a page of listings.
func NewListingResponses(listings []domain.Listing) []ListingResponse {
	items := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		items = append(items, NewListingResponse(&listings[i]))
	}
	return items
}

// SellerSummary is the seller context shown in the moderation queue.
type SellerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// PendingListingResponse is one moderation queue row.
type PendingListingResponse struct {
	ListingResponse
	Seller SellerSummary `json:"seller"`
}

// NewPendingListingResponses maps a queue page.
func NewPendingListingResponses(items []domain.PendingListing) []PendingListingResponse {
	out := make([]PendingListingResponse, 0, len(items))
	for i := range items {
		out = append(out, PendingListingResponse{
			ListingResponse: NewListingResponse(&items[i].Listing),
			Seller: SellerSummary{
				ID:       items[i].SellerID,
				Name:     items[i].SellerName,
				Email:    items[i].SellerEmail,
				Verified: items[i].SellerVerified,
			},
		})
	}
	return out
}

// RejectRequest payload.
type RejectRequest struct {
	Reason *string `json:"reason"`
}

// AuditEntryResponse response.
type AuditEntryResponse struct {
	ID         string               `json:"id"`
	FromStatus domain.ListingStatus `json:"from_status"`
	ToStatus   domain.ListingStatus `json:"to_status"`
	ActorID    string               `json:"actor_id"`
	Reason     *string              `json:"reason,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// NewAuditEntryResponses maps audit entries, preserving order.
func NewAuditEntryResponses(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:         e.ID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			ActorID:    e.ActorID,
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
