package memory

import (
	"context"
	"sync"

	"github.com/ogghst/puntini/internal/domain"
	"github.com/ogghst/puntini/internal/ports"
)

// EventBus implements ports.EventBus with in-process fan-out. Handlers run
// synchronously in subscription order, which keeps tests deterministic.
type EventBus struct {
	subscribers map[string][]subscription
	nextID      int
	mu          sync.RWMutex
	closed      bool
}

type subscription struct {
	id      int
	handler ports.EventHandler
}

// NewEventBus creates an in-memory event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]subscription),
	}
}

// Publish delivers the event to every subscriber of the topic. A handler
// error stops delivery to that handler only.
func (e *EventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return domain.NewError(domain.ErrCodeSystem, "event bus is closed")
	}
	subs := make([]subscription, len(e.subscribers[topic]))
	copy(subs, e.subscribers[topic])
	e.mu.RUnlock()

	for _, sub := range subs {
		// Handler errors are the handler's problem; delivery continues.
		_ = sub.handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for a topic. The subscription is removed
// when the context is cancelled.
func (e *EventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subscribers[topic] = append(e.subscribers[topic], subscription{id: id, handler: handler})
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(topic, id)
	}()

	return nil
}

// Unsubscribe removes all subscriptions from a topic.
func (e *EventBus) Unsubscribe(ctx context.Context, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, topic)
	return nil
}

// Close drops all subscriptions and rejects further publishes.
func (e *EventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.subscribers = make(map[string][]subscription)
	return nil
}

func (e *EventBus) remove(topic string, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, sub := range subs {
		if sub.id == id {
			e.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
