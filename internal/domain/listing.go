package domain

import "time"

// ListingStatus enumerates lifecycle states for listings.
type ListingStatus string

const (
	ListingStatusDraft    ListingStatus = "DRAFT"
	ListingStatusPending  ListingStatus = "PENDING"
	ListingStatusApproved ListingStatus = "APPROVED"
	ListingStatusRejected ListingStatus = "REJECTED"
	ListingStatusSold     ListingStatus = "SOLD"
	ListingStatusArchived ListingStatus = "ARCHIVED"
)

// ListingStatuses lists every status in lifecycle order.
var ListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusPending,
	ListingStatusApproved,
	ListingStatusRejected,
	ListingStatusSold,
	ListingStatusArchived,
}

// Valid reports whether s is one of the enumerated statuses.
func (s ListingStatus) Valid() bool {
	for _, candidate := range ListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Editable reports whether descriptive fields may change in status s.
func (s ListingStatus) Editable() bool {
	return s == ListingStatusDraft || s == ListingStatusRejected
}

// PubliclyVisible reports whether listings in status s appear in public views.
func (s ListingStatus) PubliclyVisible() bool {
	return s == ListingStatusApproved
}

// WatchCondition describes the physical state of a watch.
type WatchCondition string

const (
	ConditionNew      WatchCondition = "NEW"
	ConditionUnworn   WatchCondition = "UNWORN"
	ConditionVeryGood WatchCondition = "VERY_GOOD"
	ConditionGood     WatchCondition = "GOOD"
	ConditionFair     WatchCondition = "FAIR"
	ConditionForParts WatchCondition = "FOR_PARTS"
)

// ListingFields holds the descriptive, seller-editable part of a listing.
// None of it affects moderation decisions except PhotoCount.
type ListingFields struct {
	Brand           string
	Model           string
	ReferenceNumber string
	Year            *int
	Condition       WatchCondition
	PriceCents      int64
	Currency        string
	Description     string
	PhotoCount      int
}

// Listing is a watch offered for sale by a single seller.
type Listing struct {
	ID       string
	SellerID string
	Status   ListingStatus
	ListingFields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingListing is a queue row with enough seller context to render without lookups.
type PendingListing struct {
	Listing
	SellerName     string
	SellerEmail    string
	SellerVerified bool
}

// Valid reports whether c is a known condition grade.
func (c WatchCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUnworn, ConditionVeryGood, ConditionGood, ConditionFair, ConditionForParts:
		return true
	}
	return false
}
