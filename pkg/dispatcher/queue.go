package dispatcher

import (
	"sync"

	"github.com/perastrom/koto/pkg/event"
)

// eventQueue is the locked multi-producer/single-consumer inbox of the
// dispatcher and worker threads. Once closed it rejects pushes so producers
// get a synchronous failure instead of silently losing events.
type eventQueue struct {
	mu     sync.Mutex
	events []*event.Event
	closed bool
}

// push appends an event; returns false after close.
func (q *eventQueue) push(e *event.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.events = append(q.events, e)
	return true
}

// pop removes the oldest event.
func (q *eventQueue) pop() (*event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

// close rejects further pushes and returns whatever was still queued.
func (q *eventQueue) close() []*event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := q.events
	q.events = nil
	return rest
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
