package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/cache"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/events"
	"github.com/spec-kit/watch-market/internal/moderation"
	"github.com/spec-kit/watch-market/internal/observability"
	"github.com/spec-kit/watch-market/internal/repository"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

// ApprovedCache is the public-view cache. A nil *cache.ApprovedCache is a valid no-op.
type ApprovedCache interface {
	Get(ctx context.Context, q cache.ApprovedQuery) ([]domain.Listing, bool)
	Set(ctx context.Context, q cache.ApprovedQuery, listings []domain.Listing) error
	Invalidate(ctx context.Context) error
}

// LifecycleDependencies bundles what every status-changing service needs.
type LifecycleDependencies struct {
	ListingRepo repository.ListingRepository
	Dispatcher  events.Dispatcher
	Cache       ApprovedCache
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// lifecycle runs guarded transitions: capability, table, atomic commit, then side effects.
type lifecycle struct {
	listings   repository.ListingRepository
	dispatcher events.Dispatcher
	cache      ApprovedCache
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func newLifecycle(deps LifecycleDependencies) *lifecycle {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &lifecycle{
		listings:   deps.ListingRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// load fetches a listing, mapping missing rows and malformed ids to NotFound.
func (l *lifecycle) load(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errorutil.NewNotFound("listing", map[string]any{"listing_id": id})
	}
	listing, err := l.listings.GetByID(ctx, id)
	if err != nil {
		return nil, l.mapRepoError(err, id, actor)
	}
	return listing, nil
}

// apply performs transition t on listing id for actor.
func (l *lifecycle) apply(ctx context.Context, actor *domain.Actor, id string, t moderation.Transition, reason *string) (*domain.Listing, error) {
	if actor == nil {
		l.metrics.RecordTransition(string(t), errorutil.CodeUnauthorized)
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	listing, err := l.load(ctx, actor, id)
	if err != nil {
		l.recordOutcome(t, err)
		return nil, err
	}

	capability := moderation.Resolve(actor, listing)
	decision, err := moderation.Decide(listing.Status, t, capability, listing.PhotoCount)
	if err != nil {
		l.recordOutcome(t, err)
		return nil, err
	}
	if reason != nil && utf8.RuneCountInString(*reason) > maxReasonLen {
		err = errorutil.NewFieldError("reason", "reason is too long")
		l.recordOutcome(t, err)
		return nil, err
	}

	if decision.RemovesRecord {
		if err := l.listings.Delete(ctx, listing.ID, decision.From); err != nil {
			err = l.mapCommitError(err, listing, actor)
			l.recordOutcome(t, err)
			return nil, err
		}
		l.metrics.RecordTransition(string(t), "ok")
		l.afterCommit(ctx, decision)
		l.publish(ctx, events.Event{
			Type:      events.EventListingDeleted,
			ListingID: listing.ID,
			ActorID:   actor.ID,
			Payload:   events.ListingDeletedPayload{SellerID: listing.SellerID, LastStatus: decision.From},
		})
		return listing, nil
	}

	entry, err := l.listings.Transition(ctx, repository.TransitionCommit{
		ListingID: listing.ID,
		Expected:  decision.From,
		Next:      decision.To,
		ActorID:   actor.ID,
		Reason:    normalizeReason(reason),
	})
	if err != nil {
		err = l.mapCommitError(err, listing, actor)
		l.recordOutcome(t, err)
		return nil, err
	}

	listing.Status = decision.To
	listing.UpdatedAt = entry.CreatedAt
	l.metrics.RecordTransition(string(t), "ok")
	l.afterCommit(ctx, decision)
	l.publish(ctx, events.Event{
		Type:      events.EventListingStatusChanged,
		ListingID: listing.ID,
		ActorID:   actor.ID,
		Timestamp: entry.CreatedAt,
		Payload: events.ListingStatusChangedPayload{
			SellerID:  listing.SellerID,
			OldStatus: entry.FromStatus,
			NewStatus: entry.ToStatus,
			Reason:    entry.Reason,
		},
	})
	return listing, nil
}

// afterCommit drops cached public pages when a change entered or left APPROVED.
func (l *lifecycle) afterCommit(ctx context.Context, decision moderation.Decision) {
	if decision.From != domain.ListingStatusApproved && decision.To != domain.ListingStatusApproved {
		return
	}
	l.invalidate(ctx)
}

func (l *lifecycle) invalidate(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx); err != nil {
		l.logger.Warn("approved cache invalidation failed", zap.Error(err))
	}
}

// publish hands an event to the dispatcher. Failure never affects the committed change.
func (l *lifecycle) publish(ctx context.Context, event events.Event) {
	if l.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := l.dispatcher.Publish(ctx, event); err != nil {
		l.metrics.RecordNotification("dropped")
		l.logger.Warn("event dropped",
			zap.String("event_type", string(event.Type)),
			zap.String("listing_id", event.ListingID),
			zap.String("actor_id", event.ActorID),
			zap.Error(err))
	}
}

func (l *lifecycle) mapCommitError(err error, listing *domain.Listing, actor *domain.Actor) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return errorutil.NewConflict("listing status changed concurrently", map[string]any{
			"listing_id":      listing.ID,
			"expected_status": string(listing.Status),
		})
	}
	return l.mapRepoError(err, listing.ID, actor)
}

// mapRepoError turns persistence failures into domain errors, logging the unexpected ones.
func (l *lifecycle) mapRepoError(err error, listingID string, actor *domain.Actor) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errorutil.NewNotFound("listing", map[string]any{"listing_id": listingID})
	case errors.Is(err, repository.ErrStatusConflict):
		return errorutil.NewConflict("listing status changed concurrently", map[string]any{"listing_id": listingID})
	}
	l.logger.Error("listing persistence failed",
		zap.String("listing_id", listingID),
		zap.String("actor_id", domain.ActorID(actor)),
		zap.Error(err))
	return errorutil.NewInternalError(err)
}

func (l *lifecycle) recordOutcome(t moderation.Transition, err error) {
	l.metrics.RecordTransition(string(t), errorutil.ToDomainError(err).Code)
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
