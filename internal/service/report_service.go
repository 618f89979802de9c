package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/events"
	"github.com/spec-kit/watch-market/internal/moderation"
	"github.com/spec-kit/watch-market/internal/repository"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

// ReportService handles complaints against listings. It never changes listing status.
type ReportService struct {
	*lifecycle
	reports repository.ReportRepository
	now     func() time.Time
}

// ReportDependencies bundles repositories for the report service.
type ReportDependencies struct {
	LifecycleDependencies
	ReportRepo repository.ReportRepository
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	return &ReportService{
		lifecycle: newLifecycle(deps.LifecycleDependencies),
		reports:   deps.ReportRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create files an OPEN report against a listing the actor can see but does not own.
func (s *ReportService) Create(ctx context.Context, actor *domain.Actor, listingID, reason string) (*domain.Report, error) {
	if actor == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	listing, err := s.load(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	if err := moderation.Resolve(actor, listing).AuthorizeReport(listing.ID, listing.Status); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errorutil.NewFieldError("reason", "reason is required")
	}
	if utf8.RuneCountInString(reason) > maxReasonLen {
		return nil, errorutil.NewFieldError("reason", "reason is too long")
	}

	report := &domain.Report{
		ListingID:  listing.ID,
		ReporterID: actor.ID,
		Reason:     reason,
		Status:     domain.ReportStatusOpen,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, s.mapRepoError(err, listing.ID, actor)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventReportCreated,
		ListingID: listing.ID,
		ActorID:   actor.ID,
		Payload:   events.ReportPayload{ReportID: report.ID, ReporterID: actor.ID, Reason: reason},
	})
	return report, nil
}

// List returns reports in status, newest first. An empty status means OPEN.
func (s *ReportService) List(ctx context.Context, actor *domain.Actor, status domain.ReportStatus, limit, offset int) ([]domain.Report, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if status == "" {
		status = domain.ReportStatusOpen
	}
	if !status.Valid() {
		return nil, errorutil.NewFieldError("status", fmt.Sprintf("unknown report status %q", status))
	}
	reports, err := s.reports.List(ctx, status, limit, offset)
	if err != nil {
		return nil, s.mapRepoError(err, "", actor)
	}
	return reports, nil
}

// Close marks a report CLOSED. Closing an already closed report succeeds without change.
func (s *ReportService) Close(ctx context.Context, actor *domain.Actor, id string) (*domain.Report, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewNotFound("report", map[string]any{"report_id": id})
	}

	report, changed, err := s.reports.Close(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewNotFound("report", map[string]any{"report_id": id})
		}
		s.logger.Error("close report failed", zap.String("report_id", id), zap.String("actor_id", actor.ID), zap.Error(err))
		return nil, errorutil.NewInternalError(err)
	}
	if changed {
		s.publish(ctx, events.Event{
			Type:      events.EventReportClosed,
			ListingID: report.ListingID,
			ActorID:   actor.ID,
			Payload:   events.ReportPayload{ReportID: report.ID, ReporterID: report.ReporterID},
		})
	}
	return report, nil
}
