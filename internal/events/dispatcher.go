package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the hand-off buffer is saturated; the event is dropped.
	ErrQueueFull = errors.New("event queue full")
	// ErrDispatcherStopped is returned by Publish after Stop.
	ErrDispatcherStopped = errors.New("event dispatcher stopped")
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// AsyncDispatcher hands events to a bounded buffer drained by background workers.
// Publish never waits for handlers and never blocks on a full buffer.
type AsyncDispatcher struct {
	mu             sync.RWMutex
	listeners      map[EventType][]EventHandler
	queue          chan Event
	workers        int
	handlerTimeout time.Duration
	logger         *zap.Logger

	started atomic.Bool
	stopped atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewAsyncDispatcher creates a dispatcher instance. Call Start to begin draining.
func NewAsyncDispatcher(queueSize, workers int, logger *zap.Logger) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		listeners:      make(map[EventType][]EventHandler),
		queue:          make(chan Event, queueSize),
		workers:        workers,
		handlerTimeout: 10 * time.Second,
		logger:         logger,
		stop:           make(chan struct{}),
	}
}

// Subscribe registers a handler for the given event type.
func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Publish enqueues the event without waiting. The caller's context is not
// propagated to handlers since they outlive the request.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	if d.stopped.Load() {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("event dropped: queue full",
			zap.String("event_type", string(event.Type)),
			zap.String("listing_id", event.ListingID))
		return ErrQueueFull
	}
}

// Start launches the worker goroutines. It is a no-op when already started.
func (d *AsyncDispatcher) Start() {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop refuses new events, drains what is buffered and waits for workers or ctx.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	if !d.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(d.stop)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *AsyncDispatcher) deliver(event Event) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.invoke(handler, event)
	}
}

func (d *AsyncDispatcher) invoke(handler EventHandler, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.handlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.Any("panic", r))
		}
	}()
	// one failing handler must not stop the others
	if err := handler(ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.String("listing_id", event.ListingID),
			zap.Error(err))
	}
}
