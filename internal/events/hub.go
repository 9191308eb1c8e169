package events

import (
	"context"
	"sync"
	"time"
)

// Topic names for session lifecycle events.
const (
	TopicConfigUpdated     = "config.updated"
	TopicCredentialRenewed = "credential.renewed"
	TopicSessionExpired    = "session.expired"
	TopicSessionStarted    = "session.started"
	TopicSessionEnded      = "session.ended"

	// TopicAll receives every event regardless of its topic.
	TopicAll = "*"
)

// Event represents a published message on the event bus.
type Event struct {
	Topic     string            `json:"topic"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   any               `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Handler processes an incoming event.
type Handler func(context.Context, Event)

// Publisher exposes the ability to publish events to the hub.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, metadata map[string]string)
}

// Subscriber exposes subscription capabilities.
type Subscriber interface {
	Subscribe(topic string, handler Handler) func()
}

// Nop discards everything published to it.
type Nop struct{}

func (Nop) Publish(context.Context, string, any, map[string]string) {}

// Hub is a lightweight in-process pub/sub event bus. Delivery is synchronous
// on the publishing goroutine, so handlers must not block.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[int64]Handler
	nextID int64
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int64]Handler),
		now:  time.Now,
	}
}

// Subscribe registers a handler for topic, or for every topic when topic is
// TopicAll. The returned func unsubscribes it.
func (h *Hub) Subscribe(topic string, handler Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID

	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[int64]Handler)
	}
	h.subs[topic][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if listeners, ok := h.subs[topic]; ok {
				delete(listeners, id)
				if len(listeners) == 0 {
					delete(h.subs, topic)
				}
			}
		})
	}
}

func (h *Hub) Publish(ctx context.Context, topic string, payload any, metadata map[string]string) {
	event := Event{
		Topic:     topic,
		Timestamp: h.now().UTC(),
		Payload:   payload,
		Metadata:  metadata,
	}

	for _, handler := range h.snapshotHandlers(topic) {
		handler(ctx, event)
	}
}

// Subscribers returns the number of handlers registered for topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

func (h *Hub) snapshotHandlers(topic string) []Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()

	direct := h.subs[topic]
	wildcard := h.subs[TopicAll]
	if topic == TopicAll {
		wildcard = nil
	}
	if len(direct)+len(wildcard) == 0 {
		return nil
	}

	out := make([]Handler, 0, len(direct)+len(wildcard))
	for _, handler := range direct {
		out = append(out, handler)
	}
	for _, handler := range wildcard {
		out = append(out, handler)
	}
	return out
}
