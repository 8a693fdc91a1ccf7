// Package events fans out record-change notifications so that every
// record snapshot can be revalidated after a mutation.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fruitsalade/docportal/internal/metrics"
)

const (
	EventDocumentDeleted  = "document_deleted"
	EventDocumentUploaded = "document_uploaded"
	EventEmployeesChanged = "employees_changed"
)

// Event describes a mutation of one of the record collections.
type Event struct {
	Type       string `json:"type"`
	DocumentID string `json:"document_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Broadcaster manages subscribers and publishes events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe adds a new subscriber and returns its event channel.
// The caller must call Unsubscribe when done.
func (b *Broadcaster) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetEventSubscribers(n)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Unsubscribing
// twice is a no-op.
func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SetEventSubscribers(n)
}

// Publish sends an event to all subscribers. Non-blocking: a subscriber
// whose buffer is full misses the event.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	metrics.RecordEventPublished(event.Type)
}

// Count returns the current number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// MarshalEvent serializes an event to JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
