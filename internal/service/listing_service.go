package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/cache"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/moderation"
	"github.com/spec-kit/watch-market/internal/repository"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

const (
	defaultHistoryLimit = 5
	maxHistoryLimit     = 50
	maxDescriptionLen   = 5000
)

// ListingService coordinates seller-side listing workflows and public reads.
type ListingService struct {
	*lifecycle
	audit repository.AuditRepository
	now   func() time.Time
}

// ListingDependencies bundles repositories for the listing service.
type ListingDependencies struct {
	LifecycleDependencies
	AuditRepo repository.AuditRepository
}

// NewListingService constructs the service.
func NewListingService(deps ListingDependencies) *ListingService {
	return &ListingService{
		lifecycle: newLifecycle(deps.LifecycleDependencies),
		audit:     deps.AuditRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new DRAFT listing owned by the calling seller.
func (s *ListingService) Create(ctx context.Context, actor *domain.Actor, fields domain.ListingFields) (*domain.Listing, error) {
	if err := moderation.RequireRole(actor, domain.RoleSeller); err != nil {
		return nil, err
	}
	fields = normalizeFields(fields)
	if err := s.validateFields(fields); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		SellerID:      actor.ID,
		Status:        domain.ListingStatusDraft,
		ListingFields: fields,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, s.mapRepoError(err, "", actor)
	}
	s.logger.Info("listing created", zap.String("listing_id", listing.ID), zap.String("actor_id", actor.ID))
	return listing, nil
}

// UpdateFields rewrites descriptive fields while the listing is DRAFT or REJECTED.
func (s *ListingService) UpdateFields(ctx context.Context, actor *domain.Actor, id string, fields domain.ListingFields) (*domain.Listing, error) {
	if actor == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	listing, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := moderation.Resolve(actor, listing).AuthorizeEdit(); err != nil {
		return nil, err
	}
	if !listing.Status.Editable() {
		return nil, errorutil.NewConflict(
			fmt.Sprintf("listing in status %s cannot be edited", listing.Status),
			map[string]any{"status": string(listing.Status)},
		)
	}
	fields = normalizeFields(fields)
	if err := s.validateFields(fields); err != nil {
		return nil, err
	}

	updated, err := s.listings.UpdateFields(ctx, listing.ID, listing.Status, fields)
	if err != nil {
		return nil, s.mapCommitError(err, listing, actor)
	}
	return updated, nil
}

// Submit sends a DRAFT or REJECTED listing to the moderation queue.
func (s *ListingService) Submit(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	return s.apply(ctx, actor, id, moderation.TransitionSubmit, nil)
}

// MarkSold moves an APPROVED listing to SOLD.
func (s *ListingService) MarkSold(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	return s.apply(ctx, actor, id, moderation.TransitionMarkSold, nil)
}

// Reactivate moves a SOLD listing back to APPROVED.
func (s *ListingService) Reactivate(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	return s.apply(ctx, actor, id, moderation.TransitionReactivate, nil)
}

// Delete removes a listing together with its audit trail and reports.
func (s *ListingService) Delete(ctx context.Context, actor *domain.Actor, id string) error {
	_, err := s.apply(ctx, actor, id, moderation.TransitionDelete, nil)
	return err
}

// Get returns a listing if the actor may see it. Hidden listings read as NotFound.
func (s *ListingService) Get(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error) {
	listing, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := moderation.Resolve(actor, listing).AuthorizeRead(listing.ID, listing.Status); err != nil {
		return nil, err
	}
	return listing, nil
}

// ListApproved returns the public view, newest first.
func (s *ListingService) ListApproved(ctx context.Context, brand string, limit, offset int) ([]domain.Listing, error) {
	limit, offset = repository.NormalizePage(limit, offset)
	query := cache.ApprovedQuery{Brand: strings.TrimSpace(brand), Limit: limit, Offset: offset}

	if s.cache != nil {
		if listings, ok := s.cache.Get(ctx, query); ok {
			s.metrics.RecordCacheLookup(true)
			return listings, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	filter := repository.ListingFilter{
		Statuses: []domain.ListingStatus{domain.ListingStatusApproved},
		Limit:    limit,
		Offset:   offset,
	}
	if query.Brand != "" {
		filter.Brand = &query.Brand
	}
	listings, err := s.listings.List(ctx, filter)
	if err != nil {
		return nil, s.mapRepoError(err, "", nil)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, query, listings); err != nil {
			s.logger.Warn("approved cache write failed", zap.Error(err))
		}
	}
	return listings, nil
}

// ListMine returns every listing the calling seller owns, in any status.
func (s *ListingService) ListMine(ctx context.Context, actor *domain.Actor, statuses []domain.ListingStatus, limit, offset int) ([]domain.Listing, error) {
	if actor == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	for _, status := range statuses {
		if !status.Valid() {
			return nil, errorutil.NewFieldError("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	sellerID := actor.ID
	listings, err := s.listings.List(ctx, repository.ListingFilter{
		SellerID: &sellerID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, s.mapRepoError(err, "", actor)
	}
	return listings, nil
}

// History returns the most recent audit entries, newest first.
func (s *ListingService) History(ctx context.Context, actor *domain.Actor, id string, limit int) ([]domain.AuditEntry, error) {
	if actor == nil {
		return nil, errorutil.NewUnauthorized("authentication required")
	}
	listing, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := moderation.Resolve(actor, listing).AuthorizeHistory(); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	entries, err := s.audit.ListRecent(ctx, listing.ID, limit)
	if err != nil {
		return nil, s.mapRepoError(err, listing.ID, actor)
	}
	return entries, nil
}

func normalizeFields(fields domain.ListingFields) domain.ListingFields {
	fields.Brand = strings.TrimSpace(fields.Brand)
	fields.Model = strings.TrimSpace(fields.Model)
	fields.ReferenceNumber = strings.TrimSpace(fields.ReferenceNumber)
	fields.Currency = strings.ToUpper(strings.TrimSpace(fields.Currency))
	fields.Description = strings.TrimSpace(fields.Description)
	fields.Condition = domain.WatchCondition(strings.ToUpper(strings.TrimSpace(string(fields.Condition))))
	return fields
}

// validateFields collects every field problem into one ValidationError.
func (s *ListingService) validateFields(fields domain.ListingFields) error {
	problems := map[string]any{}
	if fields.Brand == "" {
		problems["brand"] = "brand is required"
	}
	if fields.Model == "" {
		problems["model"] = "model is required"
	}
	if fields.PriceCents <= 0 {
		problems["price_cents"] = "price must be positive"
	}
	if len(fields.Currency) != 3 || strings.Trim(fields.Currency, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		problems["currency"] = "currency must be a three-letter code"
	}
	if fields.Year != nil {
		maxYear := s.now().Year() + 1
		if *fields.Year < 1800 || *fields.Year > maxYear {
			problems["year"] = fmt.Sprintf("year must be between 1800 and %d", maxYear)
		}
	}
	if fields.Condition != "" && !fields.Condition.Valid() {
		problems["condition"] = fmt.Sprintf("unknown condition %q", fields.Condition)
	}
	if fields.PhotoCount < 0 {
		problems["photo_count"] = "photo count cannot be negative"
	}
	if utf8.RuneCountInString(fields.Description) > maxDescriptionLen {
		problems["description"] = fmt.Sprintf("description exceeds %d characters", maxDescriptionLen)
	}
	if len(problems) > 0 {
		return errorutil.NewValidationError("invalid listing fields", problems)
	}
	return nil
}
