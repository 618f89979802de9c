package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/repository"
)

func seedListing(t *testing.T, store *Store, status domain.ListingStatus) *domain.Listing {
	t.Helper()
	listing := &domain.Listing{
		SellerID: "seller-1",
		Status:   status,
		ListingFields: domain.ListingFields{
			Brand:      "Omega",
			Model:      "Speedmaster",
			PriceCents: 450000,
			Currency:   "EUR",
			PhotoCount: 1,
		},
	}
	require.NoError(t, store.Listings().Create(context.Background(), listing))
	return listing
}

func TestTransitionPreconditionAndAudit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	listing := seedListing(t, store, domain.ListingStatusPending)

	entry, err := store.Listings().Transition(ctx, repository.TransitionCommit{
		ListingID: listing.ID,
		Expected:  domain.ListingStatusPending,
		Next:      domain.ListingStatusApproved,
		ActorID:   "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusPending, entry.FromStatus)
	assert.Equal(t, domain.ListingStatusApproved, entry.ToStatus)

	_, err = store.Listings().Transition(ctx, repository.TransitionCommit{
		ListingID: listing.ID,
		Expected:  domain.ListingStatusPending,
		Next:      domain.ListingStatusRejected,
		ActorID:   "admin-2",
	})
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	entries, err := store.Audit().ListRecent(ctx, listing.ID, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = store.Listings().Transition(ctx, repository.TransitionCommit{ListingID: "missing", Expected: domain.ListingStatusPending})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	listing := seedListing(t, store, domain.ListingStatusPending)
	other := seedListing(t, store, domain.ListingStatusApproved)

	_, err := store.Listings().Transition(ctx, repository.TransitionCommit{
		ListingID: listing.ID,
		Expected:  domain.ListingStatusPending,
		Next:      domain.ListingStatusApproved,
		ActorID:   "admin-1",
	})
	require.NoError(t, err)

	report := &domain.Report{ListingID: listing.ID, ReporterID: "buyer-1", Reason: "fake", Status: domain.ReportStatusOpen}
	require.NoError(t, store.Reports().Create(ctx, report))
	kept := &domain.Report{ListingID: other.ID, ReporterID: "buyer-1", Reason: "fake", Status: domain.ReportStatusOpen}
	require.NoError(t, store.Reports().Create(ctx, kept))

	assert.ErrorIs(t, store.Listings().Delete(ctx, listing.ID, domain.ListingStatusPending), repository.ErrStatusConflict)
	require.NoError(t, store.Listings().Delete(ctx, listing.ID, domain.ListingStatusApproved))

	_, err = store.Listings().GetByID(ctx, listing.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	entries, err := store.Audit().ListRecent(ctx, listing.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = store.Reports().GetByID(ctx, report.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Reports().GetByID(ctx, kept.ID)
	assert.NoError(t, err)
}

func TestReportCloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	listing := seedListing(t, store, domain.ListingStatusApproved)
	report := &domain.Report{ListingID: listing.ID, ReporterID: "buyer-1", Reason: "fake", Status: domain.ReportStatusOpen}
	require.NoError(t, store.Reports().Create(ctx, report))

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	closed, changed, err := store.Reports().Close(ctx, report.ID, first)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.ReportStatusClosed, closed.Status)

	again, changed, err := store.Reports().Close(ctx, report.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *again.ClosedAt)
}

func TestListOrdersNewestFirstAndPages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first := seedListing(t, store, domain.ListingStatusApproved)
	second := seedListing(t, store, domain.ListingStatusApproved)
	seedListing(t, store, domain.ListingStatusSold)

	listings, err := store.Listings().List(ctx, repository.ListingFilter{
		Statuses: []domain.ListingStatus{domain.ListingStatusApproved},
	})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, second.ID, listings[0].ID)
	assert.Equal(t, first.ID, listings[1].ID)

	listings, err = store.Listings().List(ctx, repository.ListingFilter{
		Statuses: []domain.ListingStatus{domain.ListingStatusApproved},
		Limit:    1,
		Offset:   1,
	})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, first.ID, listings[0].ID)
}
