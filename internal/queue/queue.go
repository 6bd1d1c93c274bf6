// Package queue provides an unbounded multi-producer, single-consumer FIFO.
package queue

import "sync"

// Queue is an unbounded FIFO. Push never blocks. A single consumer selects
// on Signal and calls Drain to take everything buffered so far.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Push appends v and wakes the consumer.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Signal returns a channel that receives after one or more pushes. Several
// pushes may collapse into a single receive.
func (q *Queue[T]) Signal() <-chan struct{} {
	return q.signal
}

// Drain removes and returns every buffered item in push order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
