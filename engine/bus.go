package engine

import (
	"log/slog"
	"sync"
)

// EventType identifies the type of bus event.
type EventType string

// Bus event types consumed by the transport layer.
const (
	EventSessionCreated  EventType = "session.created"
	EventSessionUpdated  EventType = "session.updated"
	EventSessionStopped  EventType = "session.stopped"
	EventMessageReceived EventType = "message.received"
	EventMessageStream   EventType = "message.stream"
	EventMessageComplete EventType = "message.complete"
)

// Event is one bus notification. SessionID is always set; exactly one of
// the payload pointers is populated according to Type (session events
// carry Session, message.received carries Message, message.stream carries
// Chunk, message.complete carries Completion).
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`

	Session    *Session            `json:"session,omitempty"`
	Message    *InteractionMessage `json:"message,omitempty"`
	Chunk      *StreamChunk        `json:"chunk,omitempty"`
	Completion *Completion         `json:"completion,omitempty"`
}

// Bus is an in-process pub/sub event bus fanning engine events out to any
// number of subscribers. Events published from one session's drain loop
// arrive at every subscriber in publication order; ordering across
// sessions is unspecified.
//
// Publication is non-blocking: a subscriber that falls behind its buffer
// loses events rather than stalling every session.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	buffer      int
	closed      bool
}

// NewBus creates an event bus whose subscriber channels hold up to buffer
// pending events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		subscribers: make(map[int]chan Event),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber and returns its event channel. The
// unsubscribe function must be called to release the subscription; the
// channel is closed when unsubscribed or when the bus closes.
func (b *Bus) Subscribe() (events <-chan Event, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	b.nextID++
	id := b.nextID
	ch := make(chan Event, b.buffer)
	b.subscribers[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if ch, ok := b.subscribers[id]; ok {
			close(ch)
			delete(b.subscribers, id)
		}
	}
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	dropped := 0
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		slog.Warn("dropped bus events for slow subscribers",
			"type", string(event.Type),
			"sessionId", event.SessionID,
			"dropped", dropped,
			"subscribers", len(b.subscribers))
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
