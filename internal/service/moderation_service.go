package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/moderation"
)

const maxReasonLen = 1000

// ModerationService is the administrator surface over the PENDING queue.
// A lost race surfaces as a conflict and is never retried here.
type ModerationService struct {
	*lifecycle
}

// NewModerationService constructs the service.
func NewModerationService(deps LifecycleDependencies) *ModerationService {
	return &ModerationService{lifecycle: newLifecycle(deps)}
}

// Pending lists PENDING listings newest first with seller context.
func (s *ModerationService) Pending(ctx context.Context, actor *domain.Actor, limit, offset int) ([]domain.PendingListing, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.listings.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, s.mapRepoError(err, "", actor)
	}
	return items, nil
}

// Approve publishes a PENDING listing.
func (s *ModerationService) Approve(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	listing, err := s.apply(ctx, actor, id, moderation.TransitionApprove, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("listing approved", zap.String("listing_id", id), zap.String("actor_id", actor.ID))
	return listing, nil
}

// Reject sends a PENDING listing back to its seller. reason is optional.
func (s *ModerationService) Reject(ctx context.Context, actor *domain.Actor, id string, reason *string) (*domain.Listing, error) {
	listing, err := s.apply(ctx, actor, id, moderation.TransitionReject, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("listing rejected", zap.String("listing_id", id), zap.String("actor_id", actor.ID))
	return listing, nil
}

// Archive retires an APPROVED or SOLD listing permanently.
func (s *ModerationService) Archive(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	return s.apply(ctx, actor, id, moderation.TransitionArchive, nil)
}
