package queue

import (
	"sync"
	"sync/atomic"
)

// Receiver is the consuming side of a FIFO-class queue.
type Receiver[T any] interface {
	// TryRecv pops the next item without blocking.
	TryRecv() (T, bool)

	// Len returns the number of items ready to be received.
	Len() int
}

// DropOldestQueue is a bounded ring buffer. Pushing into a full buffer
// evicts the front item, so readers see only the most recent backlog.
type DropOldestQueue[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // next read position
	count int

	evicted atomic.Uint64
	wake    *Notifier
}

// NewDropOldestQueue creates a queue of the given capacity.
// It panics if capacity < 1; the bus builder validates capacities first.
func NewDropOldestQueue[T any](capacity int, wake *Notifier) *DropOldestQueue[T] {
	if capacity < 1 {
		panic("queue: capacity must be > 0")
	}
	return &DropOldestQueue[T]{
		buf:  make([]T, capacity),
		wake: wake,
	}
}

// Push appends v, evicting the oldest item if the buffer is full.
// It reports whether an eviction happened.
func (q *DropOldestQueue[T]) Push(v T) (evicted bool) {
	q.mu.Lock()
	capacity := len(q.buf)
	if q.count == capacity {
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % capacity
		q.count--
		evicted = true
	}
	q.buf[(q.head+q.count)%capacity] = v
	q.count++
	q.mu.Unlock()

	if evicted {
		q.evicted.Add(1)
	}
	q.wake.Notify()
	return evicted
}

// TryRecv pops the front item.
func (q *DropOldestQueue[T]) TryRecv() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v, true
}

// Len returns the number of buffered items.
func (q *DropOldestQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *DropOldestQueue[T]) Cap() int {
	return len(q.buf)
}

// Evicted returns how many items were pushed out unread.
func (q *DropOldestQueue[T]) Evicted() uint64 {
	return q.evicted.Load()
}
