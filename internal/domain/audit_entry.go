package domain

import "time"

// AuditEntry is an immutable record of one committed status transition.
type AuditEntry struct {
	ID         string
	ListingID  string
	FromStatus ListingStatus
	ToStatus   ListingStatus
	ActorID    string
	Reason     *string
	CreatedAt  time.Time
}
