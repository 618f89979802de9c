// Package worker runs the background delivery side of seller notifications.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/notification"
	"github.com/spec-kit/watch-market/internal/observability"
	"github.com/spec-kit/watch-market/internal/service"
)

// NotificationWorker drains the notification stream into the configured sinks.
type NotificationWorker struct {
	consumer *notification.StreamConsumer
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// StartNotificationWorker registers notification handlers and, when a stream
// consumer is configured, starts consuming in the background.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, consumer *notification.StreamConsumer, logger *zap.Logger) *NotificationWorker {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	w := &NotificationWorker{consumer: consumer, logger: logger}
	if consumer == nil {
		return w
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := consumer.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification consumer stopped", zap.Error(err))
		}
	}()
	logger.Info("notification worker started")
	return w
}

// Stop cancels consumption and waits for the consumer to return.
func (w *NotificationWorker) Stop() {
	if w == nil || w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.logger.Info("notification worker stopped")
}

// MeteredSink counts delivery outcomes of the wrapped sink.
type MeteredSink struct {
	next    notification.Sink
	metrics *observability.Metrics
}

// NewMeteredSink wraps next.
func NewMeteredSink(next notification.Sink, metrics *observability.Metrics) *MeteredSink {
	return &MeteredSink{next: next, metrics: metrics}
}

func (s *MeteredSink) Name() string { return s.next.Name() }

func (s *MeteredSink) Deliver(ctx context.Context, n notification.Notification) error {
	if err := s.next.Deliver(ctx, n); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("delivered")
	return nil
}
