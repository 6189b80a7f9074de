package graph

import (
	"sync"

	"github.com/roach88/graphsync/internal/source"
)

// eventQueue is an unbounded, thread-safe FIFO of remote events.
//
// Enqueue never blocks, so a delivering goroutine can always hand an event
// over even while the owner is busy draining.
type eventQueue struct {
	mu     sync.Mutex
	events []source.Event
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]source.Event, 0, 8),
	}
}

// Enqueue adds an event to the back of the queue.
func (q *eventQueue) Enqueue(e source.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// TryDequeue removes and returns the front event.
// Returns (source.Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (source.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return source.Event{}, false
	}

	e := q.events[0]

	// Clear the slot so the diff's field map can be collected.
	q.events[0] = source.Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Clear drops every pending event and returns how many were dropped.
func (q *eventQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.events)
	clear(q.events)
	q.events = q.events[:0]
	return n
}
