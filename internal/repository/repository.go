package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/watch-market/internal/domain"
)

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a status precondition no longer holds.
	ErrStatusConflict = errors.New("listing status changed concurrently")
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("record already exists")
)

// ListingFilter captures listing search parameters.
type ListingFilter struct {
	SellerID *string
	Statuses []domain.ListingStatus
	Brand    *string
	Limit    int
	Offset   int
}

// TransitionCommit is a status change and its audit entry, applied as one unit
// only if the listing is still in Expected.
type TransitionCommit struct {
	ListingID string
	Expected  domain.ListingStatus
	Next      domain.ListingStatus
	ActorID   string
	Reason    *string
}

// ListingRepository encapsulates listing persistence.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	// UpdateFields rewrites descriptive fields if the status still equals expected.
	UpdateFields(ctx context.Context, id string, expected domain.ListingStatus, fields domain.ListingFields) (*domain.Listing, error)
	// Transition commits the status update and the audit insert atomically.
	Transition(ctx context.Context, commit TransitionCommit) (*domain.AuditEntry, error)
	// Delete removes the listing, its audit entries and reports if the status still equals expected.
	Delete(ctx context.Context, id string, expected domain.ListingStatus) error
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.PendingListing, error)
}

// AuditRepository reads the append-only audit trail. Writes happen only
// inside ListingRepository.Transition.
type AuditRepository interface {
	ListRecent(ctx context.Context, listingID string, limit int) ([]domain.AuditEntry, error)
}

// ReportRepository stores complaints against listings.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	// Close moves an OPEN report to CLOSED. changed is false when it was already closed.
	Close(ctx context.Context, id string, closedAt time.Time) (report *domain.Report, changed bool, err error)
	List(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error)
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Page size bounds shared by every paginated read.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage applies the default and maximum page sizes.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
