// Package notification delivers seller-facing messages about moderation
// outcomes. Delivery is best effort: nothing here can undo a committed transition.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/domain"
)

// Notification tells a seller that a listing reached a new status.
type Notification struct {
	ID         string               `json:"id"`
	SellerID   string               `json:"seller_id"`
	ListingID  string               `json:"listing_id"`
	Status     domain.ListingStatus `json:"status"`
	Reason     *string              `json:"reason,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Publisher accepts a notification for eventual delivery.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Sink performs the final delivery of a notification.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// Encode serializes n for transport.
func Encode(n Notification) ([]byte, error) {
	return json.Marshal(n)
}

// Decode parses a notification produced by Encode.
func Decode(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.ListingID == "" || n.SellerID == "" {
		return Notification{}, errors.New("decode notification: missing listing or seller id")
	}
	return n, nil
}

// MultiSink fans a notification out to every sink and joins their errors.
type MultiSink struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewMultiSink builds a fan-out sink; nil sinks are skipped.
func NewMultiSink(logger *zap.Logger, sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept, logger: logger}
}

func (m *MultiSink) Name() string { return "multi" }

func (m *MultiSink) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			m.logger.Warn("notification sink failed",
				zap.String("sink", sink.Name()),
				zap.String("listing_id", n.ListingID),
				zap.String("seller_id", n.SellerID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// DirectPublisher delivers straight to a sink. Used when no stream outbox is available.
type DirectPublisher struct {
	Sink Sink
}

func (p DirectPublisher) Publish(ctx context.Context, n Notification) error {
	return p.Sink.Deliver(ctx, n)
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, n Notification) error {
	fields := []zap.Field{
		zap.String("notification_id", n.ID),
		zap.String("seller_id", n.SellerID),
		zap.String("listing_id", n.ListingID),
		zap.String("status", string(n.Status)),
	}
	if n.Reason != nil {
		fields = append(fields, zap.String("reason", *n.Reason))
	}
	s.logger.Info("seller notified", fields...)
	return nil
}
