package events

import (
	"context"
	"sync"

	"bankroll/domain/events"
	"bankroll/observability"

	log "github.com/sirupsen/logrus"
)

// Handler is a function that handles events. Handlers run on their own
// goroutine and must do their own error logging; a handler failure never
// propagates back to the transaction that emitted the event.
type Handler func(ctx context.Context, event events.Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[events.EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType events.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers asynchronously.
func (b *Bus) Emit(ctx context.Context, event events.Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"eventID":      event.ID(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")
	observability.EventsPublished.WithLabelValues(string(event.Type())).Inc()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"eventID":      event.ID(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events emitted during a unit of work and only
// forwards them to the real bus after the database commit succeeds.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []events.Event // stashed until Flush
}

// NewTransactionalBus creates a transactional wrapper over the real bus.
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stores an event in the pending queue without publishing.
func (b *TransactionalBus) Publish(e events.Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Use a background context for emission so handlers outlive the
	// transaction context that produced the events.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events. Called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
