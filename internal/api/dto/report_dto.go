package dto

import (
	"time"

	"github.com/spec-kit/watch-market/internal/domain"
)

// CreateReportRequest payload.
type CreateReportRequest struct {
	Reason string `json:"reason"`
}

// ReportResponse response.
type ReportResponse struct {
	ID         string              `json:"id"`
	ListingID  string              `json:"listing_id"`
	ReporterID string              `json:"reporter_id"`
	Reason     string              `json:"reason"`
	Status     domain.ReportStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	ClosedAt   *time.Time          `json:"closed_at,omitempty"`
}

// NewReportResponse maps a report.
func NewReportResponse(r *domain.Report) ReportResponse {
	return ReportResponse{
		ID:         r.ID,
		ListingID:  r.ListingID,
		ReporterID: r.ReporterID,
		Reason:     r.Reason,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		ClosedAt:   r.ClosedAt,
	}
}
