package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const payloadField = "payload"

// StreamOutbox appends notifications to a Redis stream for the worker to deliver.
type StreamOutbox struct {
	client *redis.Client
	stream string
}

// NewStreamOutbox builds an outbox on stream.
func NewStreamOutbox(client *redis.Client, stream string) *StreamOutbox {
	return &StreamOutbox{client: client, stream: stream}
}

func (o *StreamOutbox) Publish(ctx context.Context, n Notification) error {
	data, err := Encode(n)
	if err != nil {
		return err
	}
	return o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]any{payloadField: string(data)},
	}).Err()
}

// StreamConsumer reads the outbox through a consumer group and hands each entry to a sink.
// Entries are acknowledged after delivery; stalled ones are reclaimed after claimInterval.
type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	retryDelay    time.Duration
	logger        *zap.Logger
	sink          Sink
}

const (
	defaultClaimInterval = time.Minute
	defaultRetryDelay    = 2 * time.Second
)

// NewStreamConsumer builds a consumer. A non-positive claimInterval falls back to one minute.
func NewStreamConsumer(client *redis.Client, stream, group, consumer string, claimInterval time.Duration, logger *zap.Logger, sink Sink) *StreamConsumer {
	if claimInterval <= 0 {
		claimInterval = defaultClaimInterval
	}
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		claimInterval: claimInterval,
		retryDelay:    defaultRetryDelay,
		logger:        logger,
		sink:          sink,
	}
}

// EnsureGroup creates the consumer group and stream if they do not exist.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Start consumes until ctx is cancelled.
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if _, err := c.ReadOnce(ctx, 5*time.Second); err != nil && ctx.Err() == nil {
				c.logger.Error("stream read error", zap.Error(err))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("claim stalled notifications failed", zap.Error(err))
			}
		default:
		}
	}
}

// ReadOnce reads one batch, blocking up to block, and returns how many entries were acknowledged.
func (c *StreamConsumer) ReadOnce(ctx context.Context, block time.Duration) (int, error) {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	acked := 0
	for _, stream := range result {
		for _, msg := range stream.Messages {
			if c.process(ctx, msg) {
				acked++
			}
		}
	}
	return acked, nil
}

// process delivers msg and acknowledges it. Undecodable entries are acknowledged
// and dropped so they cannot block the group.
func (c *StreamConsumer) process(ctx context.Context, msg redis.XMessage) bool {
	raw, _ := msg.Values[payloadField].(string)
	n, err := Decode([]byte(raw))
	if err != nil {
		c.logger.Error("dropping malformed notification", zap.String("message_id", msg.ID), zap.Error(err))
		return c.ack(ctx, msg.ID)
	}
	if err := c.sink.Deliver(ctx, n); err != nil {
		c.logger.Warn("notification delivery failed",
			zap.String("message_id", msg.ID),
			zap.String("listing_id", n.ListingID),
			zap.Error(err))
		return false
	}
	return c.ack(ctx, msg.ID)
}

func (c *StreamConsumer) ack(ctx context.Context, id string) bool {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error("ack failed", zap.String("message_id", id), zap.Error(err))
		return false
	}
	return true
}

func (c *StreamConsumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.Idle < c.claimInterval {
			continue
		}
		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error("claim error", zap.Error(err))
			continue
		}
		for _, msg := range msgs {
			c.process(ctx, msg)
		}
	}
	return nil
}
