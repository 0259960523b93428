package events

import (
	"context"
	"log/slog"
	"sync"
)

// Bus is the central event bus for pub/sub.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event    // eventType -> channels
	allSubs     []chan Event               // subscribers to all events
	entitySubs  map[entityRef][]chan Event // (entityType, entityKey) -> channels
	log         *EventLog                  // SQLite persistence (may be nil)
	logger      *slog.Logger
	closed      bool
}

type entityRef struct {
	entityType, entityKey string
}

// NewBus creates a new event bus.
// The EventLog is optional - pass nil to disable persistence.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		entitySubs:  make(map[entityRef][]chan Event),
		log:         log,
		logger:      logger,
	}
}

// Publish sends an event to all subscribers and optionally persists it.
// Delivery never blocks: a full subscriber channel drops the event.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil
	}

	// Persist event
	if b.log != nil && !isTransient(e) {
		if _, err := b.log.Append(e); err != nil {
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
			// Continue - event delivery is more important than persistence
		}
	}

	// Channels are only closed under the write lock, so sending under the
	// read lock cannot hit a closed channel.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	// Deliver to type-specific subscribers (non-blocking)
	for _, ch := range b.subscribers[e.EventType()] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber channel full, dropping event",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_key", e.EntityKey())
		}
	}

	// Deliver to entity subscribers (non-blocking)
	for _, ch := range b.entitySubs[entityRef{e.EntityType(), e.EntityKey()}] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("entity subscriber channel full, dropping event",
				"type", e.EventType(),
				"entity_key", e.EntityKey())
		}
	}

	// Deliver to all-event subscribers (non-blocking)
	for _, ch := range b.allSubs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("all-subscriber channel full, dropping event",
				"type", e.EventType())
		}
	}

	return nil
}

// Subscribe returns a channel for events of a specific type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.allSubs = append(b.allSubs, ch)
	return ch
}

// SubscribeEntity returns a channel for events about one entity.
func (b *Bus) SubscribeEntity(entityType, entityKey string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ref := entityRef{entityType, entityKey}
	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.entitySubs[ref] = append(b.entitySubs[ref], ch)
	return ch
}

// Unsubscribe removes a subscription channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Remove from type-specific subscribers
	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(sub)
				return
			}
		}
	}

	// Remove from entity subscribers
	for ref, subs := range b.entitySubs {
		for i, sub := range subs {
			if sub == ch {
				if len(subs) == 1 {
					delete(b.entitySubs, ref)
				} else {
					b.entitySubs[ref] = append(subs[:i], subs[i+1:]...)
				}
				close(sub)
				return
			}
		}
	}

	// Remove from all-event subscribers
	for i, sub := range b.allSubs {
		if sub == ch {
			b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	// Close all type-specific subscriber channels
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil

	for _, subs := range b.entitySubs {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.entitySubs = nil

	// Close all-event subscriber channels
	for _, ch := range b.allSubs {
		close(ch)
	}
	b.allSubs = nil

	return nil
}

func isTransient(e Event) bool {
	t, ok := e.(Transient)
	return ok && t.Transient()
}
