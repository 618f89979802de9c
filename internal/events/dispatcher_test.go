package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncDispatcherDeliversToSubscribers(t *testing.T) {
	d := NewAsyncDispatcher(4, 2, nil)
	received := make(chan Event, 2)
	d.Subscribe(EventListingStatusChanged, func(_ context.Context, e Event) error {
		received <- e
		return nil
	})
	d.Subscribe(EventListingStatusChanged, func(context.Context, Event) error {
		return errors.New("sink down")
	})
	d.Start()
	defer d.Stop(context.Background()) //nolint:errcheck

	require.NoError(t, d.Publish(context.Background(), Event{ID: "e-1", Type: EventListingStatusChanged, ListingID: "l-1"}))

	select {
	case e := <-received:
		assert.Equal(t, "e-1", e.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestAsyncDispatcherPublishDoesNotBlockOnSlowHandler(t *testing.T) {
	d := NewAsyncDispatcher(1, 1, nil)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Subscribe(EventReportCreated, func(context.Context, Event) error {
		started <- struct{}{}
		<-release
		return nil
	})
	d.Start()

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventReportCreated}))
	<-started
	// worker is busy, buffer holds one more, the next is dropped
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventReportCreated}))
	err := d.Publish(context.Background(), Event{Type: EventReportCreated})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, d.Stop(context.Background()))
	assert.ErrorIs(t, d.Publish(context.Background(), Event{Type: EventReportCreated}), ErrDispatcherStopped)
}

func TestAsyncDispatcherStopDrainsBuffer(t *testing.T) {
	d := NewAsyncDispatcher(8, 1, nil)
	count := make(chan struct{}, 8)
	d.Subscribe(EventReportClosed, func(context.Context, Event) error {
		count <- struct{}{}
		return nil
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventReportClosed}))
	}
	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	assert.Len(t, count, 3)
}

func TestAsyncDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewAsyncDispatcher(2, 1, nil)
	after := make(chan struct{}, 1)
	d.Subscribe(EventListingDeleted, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventListingDeleted, func(context.Context, Event) error {
		after <- struct{}{}
		return nil
	})
	d.Start()
	defer d.Stop(context.Background()) //nolint:errcheck

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventListingDeleted}))
	select {
	case <-after:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler not invoked")
	}
}
