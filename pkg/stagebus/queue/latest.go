package queue

import "sync"

// LatestSlot holds at most one item. Set overwrites unconditionally.
type LatestSlot[T any] struct {
	mu   sync.Mutex
	val  T
	full bool
	wake *Notifier
}

// NewLatestSlot creates an empty slot that signals wake on every Set.
func NewLatestSlot[T any](wake *Notifier) *LatestSlot[T] {
	return &LatestSlot[T]{wake: wake}
}

// Set replaces the held item, even if it was never read.
func (q *LatestSlot[T]) Set(v T) {
	q.mu.Lock()
	q.val = v
	q.full = true
	q.mu.Unlock()
	q.wake.Notify()
}

// TryRecv takes the held item, leaving the slot empty.
func (q *LatestSlot[T]) TryRecv() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if !q.full {
		return zero, false
	}
	v := q.val
	q.val = zero
	q.full = false
	return v, true
}
