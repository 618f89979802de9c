package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/events"
	"github.com/spec-kit/watch-market/internal/moderation"
	"github.com/spec-kit/watch-market/internal/repository/memory"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store      *memory.Store
	dispatcher *recordingDispatcher
	listings   *ListingService
	moderation *ModerationService
	reports    *ReportService

	seller      *domain.Actor
	otherSeller *domain.Actor
	buyer       *domain.Actor
	admin       *domain.Actor
}

func newFixture(t *testing.T, cache ApprovedCache) *fixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher := &recordingDispatcher{}
	deps := LifecycleDependencies{
		ListingRepo: store.Listings(),
		Dispatcher:  dispatcher,
		Cache:       cache,
		Logger:      zap.NewNop(),
	}
	f := &fixture{
		store:      store,
		dispatcher: dispatcher,
		listings:   NewListingService(ListingDependencies{LifecycleDependencies: deps, AuditRepo: store.Audit()}),
		moderation: NewModerationService(deps),
		reports:    NewReportService(ReportDependencies{LifecycleDependencies: deps, ReportRepo: store.Reports()}),
	}
	f.seller = f.user(t, "seller@example.com", domain.RoleSeller)
	f.otherSeller = f.user(t, "other@example.com", domain.RoleSeller)
	f.buyer = f.user(t, "buyer@example.com", domain.RoleBuyer)
	f.admin = f.user(t, "admin@example.com", domain.RoleAdmin)
	return f
}

func (f *fixture) user(t *testing.T, email string, role domain.Role) *domain.Actor {
	t.Helper()
	u := &domain.User{Name: email, Email: email, Role: role}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return &domain.Actor{ID: u.ID, Role: u.Role}
}

func validFields() domain.ListingFields {
	year := 2019
	return domain.ListingFields{
		Brand:      "Omega",
		Model:      "Speedmaster Professional",
		Year:       &year,
		Condition:  domain.ConditionVeryGood,
		PriceCents: 520000,
		Currency:   "eur",
		PhotoCount: 1,
	}
}

// seed stores a listing owned by the fixture seller directly in status.
func (f *fixture) seed(t *testing.T, status domain.ListingStatus) *domain.Listing {
	t.Helper()
	listing := &domain.Listing{SellerID: f.seller.ID, Status: status, ListingFields: validFields()}
	require.NoError(t, f.store.Listings().Create(context.Background(), listing))
	return listing
}

func (f *fixture) status(t *testing.T, id string) domain.ListingStatus {
	t.Helper()
	listing, err := f.store.Listings().GetByID(context.Background(), id)
	require.NoError(t, err)
	return listing.Status
}

func (f *fixture) audit(t *testing.T, id string) []domain.AuditEntry {
	t.Helper()
	entries, err := f.store.Audit().ListRecent(context.Background(), id, 50)
	require.NoError(t, err)
	return entries
}

// do runs transition tr through the service that owns it.
func (f *fixture) do(ctx context.Context, tr moderation.Transition, actor *domain.Actor, id string) error {
	var err error
	switch tr {
	case moderation.TransitionSubmit:
		_, err = f.listings.Submit(ctx, actor, id)
	case moderation.TransitionApprove:
		_, err = f.moderation.Approve(ctx, actor, id)
	case moderation.TransitionReject:
		_, err = f.moderation.Reject(ctx, actor, id, nil)
	case moderation.TransitionMarkSold:
		_, err = f.listings.MarkSold(ctx, actor, id)
	case moderation.TransitionReactivate:
		_, err = f.listings.Reactivate(ctx, actor, id)
	case moderation.TransitionArchive:
		_, err = f.moderation.Archive(ctx, actor, id)
	case moderation.TransitionDelete:
		err = f.listings.Delete(ctx, actor, id)
	}
	return err
}

// actorFor returns an actor holding exactly the capability tr requires.
func (f *fixture) actorFor(tr moderation.Transition) *domain.Actor {
	kind, _ := moderation.RequiredActor(tr)
	if kind == moderation.ActorAdmin {
		return f.admin
	}
	return f.seller
}
