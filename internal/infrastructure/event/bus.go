package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tourops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultHandlerTimeout bounds how long one handler may work on one event
const DefaultHandlerTimeout = 5 * time.Second

// InMemoryEventBus implements EventBus with in-memory, asynchronous pub/sub.
// Each handler receives each event on its own goroutine, so a slow, failing or
// panicking subscriber never delays or fails the publisher. Delivery is
// at-most-once to the handlers registered at publish time.
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	handlerTimeout time.Duration
	running        atomic.Bool
	wg             sync.WaitGroup
	failures       atomic.Int64
}

// BusOption customizes an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithHandlerTimeout overrides DefaultHandlerTimeout
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus. It accepts events once started.
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry:       NewHandlerRegistry(),
		logger:         logger.Named("event-bus"),
		handlerTimeout: DefaultHandlerTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their handlers and returns immediately.
// It never reports handler failures; they are logged and counted.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		b.logger.Debug("event bus not running, dropping events", zap.Int("count", len(events)))
		return nil
	}

	// handlers outlive the request that published the event
	base := context.WithoutCancel(ctx)
	for _, event := range events {
		for _, handler := range b.registry.Handlers(event.EventType()) {
			b.wg.Add(1)
			go b.dispatch(base, handler, event)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler. Deliveries already in flight still complete.
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts accepting events
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Duration("handler_timeout", b.handlerTimeout))
	return nil
}

// Stop stops accepting events and waits for in-flight deliveries or ctx to end.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// Failures returns how many deliveries failed or panicked
func (b *InMemoryEventBus) Failures() int64 {
	return b.failures.Load()
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1)
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	if err := handler.Handle(ctx, event); err != nil {
		b.failures.Add(1)
		b.logger.Warn("handler failed to process event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Error(err),
		)
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
