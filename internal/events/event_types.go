package events

import (
	"time"

	"github.com/spec-kit/watch-market/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventListingStatusChanged EventType = "listing_status_changed"
	EventListingDeleted       EventType = "listing_deleted"
	EventReportCreated        EventType = "report_created"
	EventReportClosed         EventType = "report_closed"
)

// Event represents a domain event emitted after a successful commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ListingID string      `json:"listing_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ListingStatusChangedPayload payload.
type ListingStatusChangedPayload struct {
	SellerID  string               `json:"seller_id"`
	OldStatus domain.ListingStatus `json:"old_status"`
	NewStatus domain.ListingStatus `json:"new_status"`
	Reason    *string              `json:"reason,omitempty"`
}

// ListingDeletedPayload payload.
type ListingDeletedPayload struct {
	SellerID   string               `json:"seller_id"`
	LastStatus domain.ListingStatus `json:"last_status"`
}

// ReportPayload payload for report events.
type ReportPayload struct {
	ReportID   string `json:"report_id"`
	ReporterID string `json:"reporter_id"`
	Reason     string `json:"reason,omitempty"`
}
