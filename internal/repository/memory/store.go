// Package memory implements the repository ports in process memory. It backs
// the service when no Postgres DSN is configured and is used throughout tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/repository"
)

type listingRow struct {
	listing domain.Listing
	seq     int64
}

type auditRow struct {
	entry domain.AuditEntry
	seq   int64
}

type reportRow struct {
	report domain.Report
	seq    int64
}

// Store holds every table behind a single lock, which makes Transition atomic.
type Store struct {
	mu       sync.RWMutex
	seq      int64
	now      func() time.Time
	users    map[string]domain.User
	emails   map[string]string
	listings map[string]listingRow
	audits   map[string][]auditRow
	reports  map[string]reportRow
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		users:    make(map[string]domain.User),
		emails:   make(map[string]string),
		listings: make(map[string]listingRow),
		audits:   make(map[string][]auditRow),
		reports:  make(map[string]reportRow),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Listings returns the listing repository view of the store.
func (s *Store) Listings() repository.ListingRepository { return listingRepo{s} }

// Audit returns the audit repository view of the store.
func (s *Store) Audit() repository.AuditRepository { return auditRepo{s} }

// Reports returns the report repository view of the store.
func (s *Store) Reports() repository.ReportRepository { return reportRepo{s} }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := r.s.emails[key]; exists {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	r.s.emails[key] = user.ID
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	key := strings.ToLower(user.Email)
	if owner, taken := r.s.emails[key]; taken && owner != user.ID {
		return repository.ErrDuplicate
	}
	delete(r.s.emails, strings.ToLower(existing.Email))
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	r.s.emails[key] = user.ID
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.s.users[id]
	return &user, nil
}

type listingRepo struct{ s *Store }

func (r listingRepo) Create(_ context.Context, listing *domain.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	listing.ID = uuid.NewString()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	r.s.listings[listing.ID] = listingRow{listing: cloneListing(*listing), seq: r.s.next()}
	return nil
}

func (r listingRepo) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	listing := cloneListing(row.listing)
	return &listing, nil
}

func (r listingRepo) UpdateFields(_ context.Context, id string, expected domain.ListingStatus, fields domain.ListingFields) (*domain.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if row.listing.Status != expected {
		return nil, repository.ErrStatusConflict
	}
	row.listing.ListingFields = fields
	row.listing.UpdatedAt = r.s.now()
	row.listing = cloneListing(row.listing)
	r.s.listings[id] = row
	listing := cloneListing(row.listing)
	return &listing, nil
}

func (r listingRepo) Transition(_ context.Context, commit repository.TransitionCommit) (*domain.AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.listings[commit.ListingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if row.listing.Status != commit.Expected {
		return nil, repository.ErrStatusConflict
	}

	now := r.s.now()
	row.listing.Status = commit.Next
	row.listing.UpdatedAt = now
	r.s.listings[commit.ListingID] = row

	entry := domain.AuditEntry{
		ID:         uuid.NewString(),
		ListingID:  commit.ListingID,
		FromStatus: commit.Expected,
		ToStatus:   commit.Next,
		ActorID:    commit.ActorID,
		Reason:     cloneString(commit.Reason),
		CreatedAt:  now,
	}
	r.s.audits[commit.ListingID] = append(r.s.audits[commit.ListingID], auditRow{entry: entry, seq: r.s.next()})
	return &entry, nil
}

func (r listingRepo) Delete(_ context.Context, id string, expected domain.ListingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.listings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if row.listing.Status != expected {
		return repository.ErrStatusConflict
	}
	delete(r.s.listings, id)
	delete(r.s.audits, id)
	for reportID, report := range r.s.reports {
		if report.report.ListingID == id {
			delete(r.s.reports, reportID)
		}
	}
	return nil
}

func (r listingRepo) List(_ context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	statuses := make(map[domain.ListingStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}
	brand := ""
	if filter.Brand != nil {
		brand = strings.ToLower(strings.TrimSpace(*filter.Brand))
	}

	matched := make([]listingRow, 0)
	for _, row := range r.s.listings {
		if filter.SellerID != nil && row.listing.SellerID != *filter.SellerID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[row.listing.Status]; !ok {
				continue
			}
		}
		if brand != "" && strings.ToLower(row.listing.Brand) != brand {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	result := []domain.Listing{}
	for _, row := range page(matched, limit, offset) {
		result = append(result, cloneListing(row.listing))
	}
	return result, nil
}

func (r listingRepo) ListPending(ctx context.Context, limit, offset int) ([]domain.PendingListing, error) {
	listings, err := r.List(ctx, repository.ListingFilter{
		Statuses: []domain.ListingStatus{domain.ListingStatusPending},
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.PendingListing, 0, len(listings))
	for _, listing := range listings {
		seller := r.s.users[listing.SellerID]
		result = append(result, domain.PendingListing{
			Listing:        listing,
			SellerName:     seller.Name,
			SellerEmail:    seller.Email,
			SellerVerified: seller.Verified,
		})
	}
	return result, nil
}

type auditRepo struct{ s *Store }

func (r auditRepo) ListRecent(_ context.Context, listingID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.s.audits[listingID]
	result := []domain.AuditEntry{}
	for i := len(rows) - 1; i >= 0 && len(result) < limit; i-- {
		entry := rows[i].entry
		entry.Reason = cloneString(entry.Reason)
		result = append(result, entry)
	}
	return result, nil
}

type reportRepo struct{ s *Store }

func (r reportRepo) Create(_ context.Context, report *domain.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[report.ListingID]; !ok {
		return repository.ErrNotFound
	}
	report.ID = uuid.NewString()
	report.CreatedAt = r.s.now()
	r.s.reports[report.ID] = reportRow{report: *report, seq: r.s.next()}
	return nil
}

func (r reportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	report := row.report
	return &report, nil
}

func (r reportRepo) Close(_ context.Context, id string, closedAt time.Time) (*domain.Report, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.reports[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if row.report.Status == domain.ReportStatusClosed {
		report := row.report
		return &report, false, nil
	}
	row.report.Status = domain.ReportStatusClosed
	row.report.ClosedAt = &closedAt
	r.s.reports[id] = row
	report := row.report
	return &report, true, nil
}

func (r reportRepo) List(_ context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := make([]reportRow, 0)
	for _, row := range r.s.reports {
		if row.report.Status == status {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	limit, offset = repository.NormalizePage(limit, offset)
	result := []domain.Report{}
	for _, row := range page(matched, limit, offset) {
		result = append(result, row.report)
	}
	return result, nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func cloneListing(listing domain.Listing) domain.Listing {
	if listing.Year != nil {
		year := *listing.Year
		listing.Year = &year
	}
	return listing
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
