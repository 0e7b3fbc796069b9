package library

import (
	"sync"

	"github.com/jamesainslie/modkeep/pkg/modkeep/watcher"
)

// eventQueue is an unbounded FIFO between the parent source and the
// routing worker. push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []watcher.Event
	closed bool
	ready  chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev watcher.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
	q.signal()
}

// close stops accepting events. Queued events are still returned by next.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// next blocks for the oldest event. ok is false once the queue is closed
// and drained. Only one goroutine may call next.
func (q *eventQueue) next() (watcher.Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = watcher.Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, true
		}
		if q.closed {
			q.mu.Unlock()
			return watcher.Event{}, false
		}
		q.mu.Unlock()
		<-q.ready
	}
}
