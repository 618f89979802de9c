package domain

import "time"

// ReportStatus enumerates report states. Only OPEN -> CLOSED exists.
type ReportStatus string

const (
	ReportStatusOpen   ReportStatus = "OPEN"
	ReportStatusClosed ReportStatus = "CLOSED"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	return s == ReportStatusOpen || s == ReportStatusClosed
}

// Report is a user complaint against a listing.
type Report struct {
	ID         string
	ListingID  string
	ReporterID string
	Reason     string
	Status     ReportStatus
	CreatedAt  time.Time
	ClosedAt   *time.Time
}
