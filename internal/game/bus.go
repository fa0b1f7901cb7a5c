package game

import (
	"fmt"
	"sync"
	"time"
)

// EventType identifies a state-change notification
type EventType int

const (
	EventVitals EventType = iota
	EventIdentity
	EventParty
	EventEffects
	EventAilments
	EventHostiles
	EventCombat
	EventTick
	EventStatus
)

// Notification is delivered to bus subscribers after the corresponding
// state mutation has completed.
type Notification struct {
	Type      EventType
	Payload   any
	Timestamp time.Time
}

// NotificationHandler receives bus notifications
type NotificationHandler func(Notification)

// Bus is a subscribe/fire notification bus for status consumers (the
// presentation layer plugs in here). Handlers run synchronously and are
// panic-isolated so a misbehaving consumer cannot kill the decision loop.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType]map[string]NotificationHandler
	nextID      int
}

// NewBus creates an empty notification bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType]map[string]NotificationHandler),
		nextID:      1,
	}
}

// Subscribe registers a handler for one notification type and returns a
// subscription id for Unsubscribe.
func (b *Bus) Subscribe(t EventType, handler NotificationHandler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub_%d", b.nextID)
	b.nextID++

	if b.subscribers[t] == nil {
		b.subscribers[t] = make(map[string]NotificationHandler)
	}
	b.subscribers[t][id] = handler
	return id
}

// Unsubscribe removes a handler
func (b *Bus) Unsubscribe(t EventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subscribers[t]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subscribers, t)
		}
	}
}

// Fire synchronously delivers a notification to all subscribers
func (b *Bus) Fire(t EventType, payload any) {
	b.mu.RLock()
	handlers, ok := b.subscribers[t]
	b.mu.RUnlock()

	if !ok {
		return
	}

	n := Notification{Type: t, Payload: payload, Timestamp: time.Now()}
	for _, handler := range handlers {
		func() {
			defer func() {
				recover()
			}()
			handler(n)
		}()
	}
}

// SubscriberCount returns the number of handlers for a type
func (b *Bus) SubscriberCount(t EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[t])
}

// Clear removes all subscribers
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = make(map[EventType]map[string]NotificationHandler)
}
