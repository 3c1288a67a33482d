package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amirasaad/cashfake/pkg/eventbus"
)

// keepPublished bounds the history kept for Published.
const keepPublished = 256

// MemoryEventBus dispatches events synchronously to in-process handlers.
type MemoryEventBus struct {
	mu        sync.RWMutex
	handlers  map[string][]eventbus.HandlerFunc
	published []eventbus.Event
	logger    *slog.Logger
}

var _ eventbus.Bus = (*MemoryEventBus)(nil)

// NewWithMemory creates an in-memory event bus.
func NewWithMemory(logger *slog.Logger) *MemoryEventBus {
	return &MemoryEventBus{
		handlers: make(map[string][]eventbus.HandlerFunc),
		logger:   logger.With("bus", "memory"),
	}
}

// Register adds a handler for eventType.
func (b *MemoryEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit runs every handler of the event's type. Handler errors and panics are logged and
// do not reach the publisher.
func (b *MemoryEventBus) Emit(ctx context.Context, e eventbus.Event) error {
	b.mu.Lock()
	b.published = append(b.published, e)
	if n := len(b.published); n > keepPublished {
		b.published = append(b.published[:0:0], b.published[n-keepPublished:]...)
	}
	handlers := append([]eventbus.HandlerFunc(nil), b.handlers[e.Type()]...)
	b.mu.Unlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, e)
	}
	return nil
}

func (b *MemoryEventBus) dispatch(ctx context.Context, h eventbus.HandlerFunc, e eventbus.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked", "type", e.Type(), "panic", r)
		}
	}()
	if err := h(ctx, e); err != nil {
		b.logger.Error("Event handler failed", "type", e.Type(), "error", err)
	}
}

// Published returns the most recent emitted events, oldest first.
func (b *MemoryEventBus) Published() []eventbus.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]eventbus.Event(nil), b.published...)
}

// Close is a no-op.
func (b *MemoryEventBus) Close() error { return nil }
