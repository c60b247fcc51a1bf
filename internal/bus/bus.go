// Package bus provides the async message bus between input adapters, the
// assistant core, and the view layer. The core never holds a reference to
// the view; it only publishes events here.
package bus

import (
	"context"
	"sync"
	"time"
)

// Outbound event kinds.
const (
	KindReply           = "reply"
	KindFollowUp        = "follow_up"
	KindConfirmation    = "confirmation"
	KindError           = "error"
	KindCalendarRefresh = "calendar_refresh"
)

// Utterance represents one user input handed to the assistant.
type Utterance struct {
	TraceID   string    `json:"trace_id"`
	Text      string    `json:"text"`
	ImagePath string    `json:"image_path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event represents output from the assistant to the view layer.
type Event struct {
	Kind    string `json:"kind"`
	TraceID string `json:"trace_id"`
	Content string `json:"content"`
	// Date names the day affected by a calendar mutation, for refresh events.
	Date string `json:"date,omitempty"`
}

// MessageBus decouples input adapters and the view from the assistant core.
type MessageBus struct {
	inbound  chan *Utterance
	outbound chan *Event
	subs     []func(*Event)
	mu       sync.RWMutex
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan *Utterance, 16),
		outbound: make(chan *Event, 64),
	}
}

// PublishUtterance queues a user input for the assistant. Input arriving
// while a cycle is in flight waits here; the assistant consumes strictly
// one at a time.
func (b *MessageBus) PublishUtterance(u *Utterance) {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}
	b.inbound <- u
}

// ConsumeUtterance blocks until an input is available or context is cancelled.
func (b *MessageBus) ConsumeUtterance(ctx context.Context) (*Utterance, error) {
	select {
	case u := <-b.inbound:
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PublishEvent sends an event from the assistant to the view.
func (b *MessageBus) PublishEvent(e *Event) {
	b.outbound <- e
}

// Subscribe registers a callback for outbound events.
func (b *MessageBus) Subscribe(callback func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, callback)
}

// DispatchEvents runs the outbound event dispatcher.
// This should be run as a goroutine.
func (b *MessageBus) DispatchEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-b.outbound:
			b.mu.RLock()
			callbacks := append([]func(*Event){}, b.subs...)
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(e)
			}
		}
	}
}

// PendingInput returns the number of queued utterances.
func (b *MessageBus) PendingInput() int {
	return len(b.inbound)
}
