// Package events distributes repository domain events to subscribers.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Type is the kind of domain event.
type Type int

// Event kinds.
const (
	Created Type = iota + 1
	Deleted
	Renamed
	Enabled
	Disabled
	Moved
	FolderCreated
	FolderDeleted
)

var typeNames = map[Type]string{
	Created:       "created",
	Deleted:       "deleted",
	Renamed:       "renamed",
	Enabled:       "enabled",
	Disabled:      "disabled",
	Moved:         "moved",
	FolderCreated: "folder-created",
	FolderDeleted: "folder-deleted",
}

// String returns the event name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is one change to a repository. OldPath is set for Renamed and
// Moved. EntryID is empty for folder events.
type Event struct {
	Type    Type
	Object  string
	EntryID string
	Path    string
	OldPath string
	Time    time.Time
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 100

// Subscriber receives events matching its filters. An empty Object matches
// every object; empty Types matches every type.
type Subscriber struct {
	ID     string
	Object string
	Types  []Type
	Events chan Event
}

func (s *Subscriber) matches(ev Event) bool {
	if s.Object != "" && s.Object != ev.Object {
		return false
	}
	return len(s.Types) == 0 || slices.Contains(s.Types, ev.Type)
}

// Broadcaster fans events out to subscribers. Publishing never blocks: an
// event is dropped for a subscriber whose buffer is full.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
	buffer      int
	dropped     atomic.Int64
}

// New creates a Broadcaster with DefaultBuffer.
func New() *Broadcaster {
	return NewWithBuffer(DefaultBuffer)
}

// NewWithBuffer creates a Broadcaster whose subscribers buffer n events.
func NewWithBuffer(n int) *Broadcaster {
	if n < 1 {
		n = 1
	}
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
		buffer:      n,
	}
}

// Subscribe registers a subscriber. It returns nil after Close.
func (b *Broadcaster) Subscribe(object string, types ...Type) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Object: object,
		Types:  types,
		Events: make(chan Event, b.buffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Publish sends ev to every matching subscriber. A zero Time is set to now.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.Events <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events dropped for full subscribers.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}
