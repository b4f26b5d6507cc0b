package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// subscriber is one listener and the event types it asked for.
type subscriber struct {
	ch    chan Event
	types []string // empty = every type
}

func (s *subscriber) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// Bus persists cycle events and fans them out to in-process listeners.
// Delivery never blocks a cycle: a listener whose buffer is full misses
// the event, which stays in the event log.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	log    *EventLog // may be nil
	logger *slog.Logger
	closed bool
}

// NewBus creates a bus. A nil log disables persistence.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		log:    log,
		logger: logger.With("component", "events"),
	}
}

// Emit publishes e and logs instead of returning a failure. A nil bus
// discards the event, so publishers need no nil checks.
func (b *Bus) Emit(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	if err := b.Publish(ctx, e); err != nil {
		b.logger.Warn("publish failed", "type", e.EventType(), "error", err)
	}
}

// Publish records e in the event log and delivers it to every listener
// subscribed to its type. A failed append is logged; delivery still happens.
func (b *Bus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	if b.log != nil {
		if _, err := b.log.Append(e); err != nil {
			b.logger.Error("persist event", "type", e.EventType(), "entity_id", e.EntityID(), "error", err)
		}
	}

	for _, s := range b.subs {
		if !s.wants(e.EventType()) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.logger.Warn("listener full, event dropped",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_id", e.EntityID())
		}
	}
	return nil
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. The channel is closed by Unsubscribe or
// Close.
func (b *Bus) Subscribe(bufferSize int, types ...string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &subscriber{ch: make(chan Event, bufferSize), types: types}
	if b.closed {
		close(s.ch)
		return s.ch
	}
	b.subs = append(b.subs, s)
	return s.ch
}

// Unsubscribe detaches and closes a channel returned by Subscribe.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = slices.DeleteFunc(b.subs, func(s *subscriber) bool {
		if s.ch != ch {
			return false
		}
		close(s.ch)
		return true
	})
}

// Close detaches every listener. Later publishes are ignored.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
	return nil
}
