package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/notification"
	"github.com/spec-kit/watch-market/internal/observability"
)

type collectSink struct {
	mu  sync.Mutex
	got []notification.Notification
}

func (s *collectSink) Name() string { return "collect" }

func (s *collectSink) Deliver(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestWorkerDeliversQueuedNotifications(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := &collectSink{}
	metered := NewMeteredSink(sink, observability.NewMetrics("test"))
	consumer := notification.NewStreamConsumer(client, "notifications", "notifiers", "w1", time.Minute, zap.NewNop(), metered)
	require.NoError(t, consumer.EnsureGroup(context.Background()))

	w := StartNotificationWorker(context.Background(), nil, consumer, zap.NewNop())
	defer w.Stop()

	outbox := notification.NewStreamOutbox(client, "notifications")
	require.NoError(t, outbox.Publish(context.Background(), notification.Notification{
		ID:        "n-1",
		SellerID:  "seller-1",
		ListingID: "listing-1",
		Status:    domain.ListingStatusApproved,
	}))

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestStopWithoutConsumerIsNoop(t *testing.T) {
	w := StartNotificationWorker(context.Background(), nil, nil, zap.NewNop())
	w.Stop()
}
