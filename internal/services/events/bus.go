package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Handler reacts to an event. Returned errors are logged by the bus.
type Handler func(ctx context.Context, ev Event) error

// Subscription identifies a registered handler so it can be removed
type Subscription struct {
	kind Kind
	id   uint64
}

type registration struct {
	id      uint64
	name    string
	handler Handler
}

// Bus is an in-process publish/subscribe dispatcher. Handlers run
// synchronously in registration order; a failing handler never stops the
// others or the emitter.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]registration
	nextID   uint64
	logger   *slog.Logger
}

// NewBus creates an empty event bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Kind][]registration),
		logger:   logger,
	}
}

// Subscribe registers handler for kind. name shows up in logs.
func (b *Bus) Subscribe(kind Kind, name string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], registration{id: b.nextID, name: name, handler: handler})
	b.logger.Debug("Subscribed handler", "kind", kind, "handler", name)
	return Subscription{kind: kind, id: b.nextID}
}

// Subscribe registers a handler for the payload type E. The kind is taken
// from E, so a handler can only ever receive the payload it declares.
func Subscribe[E Event](b *Bus, name string, handler func(ctx context.Context, ev E) error) Subscription {
	var zero E
	return b.Subscribe(zero.Kind(), name, func(ctx context.Context, ev Event) error {
		typed, ok := ev.(E)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", ev, zero.Kind())
		}
		return handler(ctx, typed)
	})
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[sub.kind]
	for i, r := range regs {
		if r.id == sub.id {
			b.handlers[sub.kind] = append(regs[:i:i], regs[i+1:]...)
			b.logger.Debug("Unsubscribed handler", "kind", sub.kind, "handler", r.name)
			return
		}
	}
}

// Emit delivers ev to every handler registered for its kind
func (b *Bus) Emit(ctx context.Context, ev Event) {
	kind := ev.Kind()

	b.mu.RLock()
	regs := append([]registration(nil), b.handlers[kind]...)
	b.mu.RUnlock()

	b.logger.Debug("Emitting event", "kind", kind, "handlers", len(regs))
	for _, r := range regs {
		b.dispatch(ctx, kind, r, ev)
	}
}

func (b *Bus) dispatch(ctx context.Context, kind Kind, r registration, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("Event handler panicked", "kind", kind, "handler", r.name, "panic", rec)
		}
	}()
	if err := r.handler(ctx, ev); err != nil {
		b.logger.Error("Event handler failed", "kind", kind, "handler", r.name, "error", err)
	}
}

// Count returns the number of handlers registered for kind
func (b *Bus) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Kinds lists the kinds that have at least one handler, sorted
func (b *Bus) Kinds() []Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	kinds := make([]Kind, 0, len(b.handlers))
	for k, regs := range b.handlers {
		if len(regs) > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Clear removes all handlers
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Kind][]registration)
	b.logger.Info("Cleared all event subscribers")
}
