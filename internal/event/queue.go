package event

import (
	"context"
	"sync"
)

// Queue is a single-producer/single-consumer unbounded FIFO bridging
// generator events to a pull-based consumer. Push never blocks; Next
// blocks until an event arrives, the queue closes, or the context is
// done.
//
// Invariant: a buffered event and a parked waiter never coexist — an
// arriving event is handed straight to the oldest waiter when one is
// parked, and buffered otherwise.
type Queue struct {
	mu      sync.Mutex
	buffer  []Event
	waiters []chan Event
	closed  bool
}

// NewQueue creates an empty open queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event. After Close it is inert: the event is dropped
// silently so a late producer never panics.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		w <- e
		return
	}

	q.buffer = append(q.buffer, e)
}

// Close marks the end of the stream and releases parked waiters.
// Buffered events remain drainable; Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	for _, w := range q.waiters {
		close(w)
	}
	q.waiters = nil
}

// Next returns the oldest event. ok is false once the queue is closed
// and drained, or when ctx is done first.
func (q *Queue) Next(ctx context.Context) (Event, bool) {
	q.mu.Lock()

	if len(q.buffer) > 0 {
		e := q.buffer[0]
		q.buffer = q.buffer[1:]
		q.mu.Unlock()
		return e, true
	}

	if q.closed {
		q.mu.Unlock()
		return Event{}, false
	}

	// Park. Capacity 1 lets Push hand off without blocking on a waiter
	// that is concurrently giving up via ctx.
	w := make(chan Event, 1)
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case e, ok := <-w:
		return e, ok
	case <-ctx.Done():
		q.abandon(w)
		// A push may have raced the cancellation; prefer the event.
		select {
		case e, ok := <-w:
			return e, ok
		default:
			return Event{}, false
		}
	}
}

// abandon removes a waiter that gave up before delivery.
func (q *Queue) abandon(w chan Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, cand := range q.waiters {
		if cand == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}
