package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/events"
	"github.com/spec-kit/watch-market/internal/notification"
	"github.com/spec-kit/watch-market/internal/observability"
)

// NotificationService turns committed moderation outcomes into seller notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  notification.Publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher notification.Publisher, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventListingStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventReportCreated, n.handleReportCreated)
}

// handleStatusChanged notifies the seller of APPROVED and REJECTED outcomes only.
// Errors are logged and counted; the transition they describe is already committed.
func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ListingStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.NewStatus != domain.ListingStatusApproved && payload.NewStatus != domain.ListingStatusRejected {
		return nil
	}

	msg := notification.Notification{
		ID:         event.ID,
		SellerID:   payload.SellerID,
		ListingID:  event.ListingID,
		Status:     payload.NewStatus,
		Reason:     payload.Reason,
		OccurredAt: event.Timestamp,
	}
	if err := n.publisher.Publish(ctx, msg); err != nil {
		n.metrics.RecordNotification("failed")
		n.logger.Error("seller notification failed",
			zap.String("listing_id", msg.ListingID),
			zap.String("seller_id", msg.SellerID),
			zap.String("status", string(msg.Status)),
			zap.Error(err))
		return nil
	}
	n.metrics.RecordNotification("queued")
	return nil
}

func (n *NotificationService) handleReportCreated(_ context.Context, event events.Event) error {
	n.logger.Info("listing reported", zap.String("listing_id", event.ListingID), zap.String("actor_id", event.ActorID))
	return nil
}
