package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/events"
	"github.com/spec-kit/watch-market/internal/notification"
)

type capturePublisher struct {
	got []notification.Notification
	err error
}

func (p *capturePublisher) Publish(_ context.Context, n notification.Notification) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, n)
	return nil
}

func statusEvent(next domain.ListingStatus, reason *string) events.Event {
	return events.Event{
		ID:        "evt-1",
		Type:      events.EventListingStatusChanged,
		ListingID: "listing-1",
		ActorID:   "admin-1",
		Timestamp: time.Now(),
		Payload: events.ListingStatusChangedPayload{
			SellerID:  "seller-1",
			OldStatus: domain.ListingStatusPending,
			NewStatus: next,
			Reason:    reason,
		},
	}
}

func TestNotificationOnlyForModerationOutcomes(t *testing.T) {
	publisher := &capturePublisher{}
	svc := NewNotificationService(nil, publisher, nil, zap.NewNop())
	ctx := context.Background()

	reason := "photos too dark"
	require.NoError(t, svc.handleStatusChanged(ctx, statusEvent(domain.ListingStatusRejected, &reason)))
	require.NoError(t, svc.handleStatusChanged(ctx, statusEvent(domain.ListingStatusApproved, nil)))
	require.NoError(t, svc.handleStatusChanged(ctx, statusEvent(domain.ListingStatusSold, nil)))
	require.NoError(t, svc.handleStatusChanged(ctx, statusEvent(domain.ListingStatusPending, nil)))

	require.Len(t, publisher.got, 2)
	assert.Equal(t, domain.ListingStatusRejected, publisher.got[0].Status)
	assert.Equal(t, "seller-1", publisher.got[0].SellerID)
	require.NotNil(t, publisher.got[0].Reason)
	assert.Equal(t, "photos too dark", *publisher.got[0].Reason)
	assert.Equal(t, domain.ListingStatusApproved, publisher.got[1].Status)
}

func TestNotificationFailureIsSwallowed(t *testing.T) {
	publisher := &capturePublisher{err: errors.New("redis down")}
	svc := NewNotificationService(nil, publisher, nil, zap.NewNop())
	assert.NoError(t, svc.handleStatusChanged(context.Background(), statusEvent(domain.ListingStatusApproved, nil)))
}

func TestApprovalReachesPublisherThroughDispatcher(t *testing.T) {
	dispatcher := events.NewAsyncDispatcher(8, 1, zap.NewNop())
	publisher := &capturePublisher{}
	NewNotificationService(dispatcher, publisher, nil, zap.NewNop()).RegisterHandlers()
	dispatcher.Start()

	f := newFixture(t, nil)
	mod := NewModerationService(LifecycleDependencies{ListingRepo: f.store.Listings(), Dispatcher: dispatcher, Logger: zap.NewNop()})
	listing := f.seed(t, domain.ListingStatusPending)
	_, err := mod.Approve(context.Background(), f.admin, listing.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Stop(ctx))
	require.Len(t, publisher.got, 1)
	assert.Equal(t, listing.ID, publisher.got[0].ListingID)
	assert.Equal(t, f.seller.ID, publisher.got[0].SellerID)
}
