package queue

import (
	"context"
	"sync/atomic"
)

// IsolatedInboxSize is the fixed capacity of a forwarder's publisher-facing
// inbox. It is deliberately small: a full inbox is an explicit drop.
const IsolatedInboxSize = 16

// DrainTask runs until ctx is done. Start each task once, before any
// publisher runs, so forwarding is live from the first delivery.
type DrainTask func(ctx context.Context)

// Forwarder is the publisher side of an isolated subscription.
type Forwarder[T any] struct {
	inbox chan T
}

// Output is the subscriber side of an isolated subscription.
type Output[T any] struct {
	ch <-chan T
}

// NewForwarder creates a forwarder, its output and the drain task that
// connects them. The drain task performs a blocking hand-off into the
// output channel and wakes the subscriber after every hand-off.
func NewForwarder[T any](outputBuffer int, wake *Notifier) (*Forwarder[T], *Output[T], DrainTask) {
	if outputBuffer < 1 {
		panic("queue: output buffer must be > 0")
	}
	inbox := make(chan T, IsolatedInboxSize)
	out := make(chan T, outputBuffer)

	var started atomic.Bool
	drain := func(ctx context.Context) {
		if !started.CompareAndSwap(false, true) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-inbox:
				select {
				case out <- v:
					wake.Notify()
				case <-ctx.Done():
					return
				}
			}
		}
	}

	return &Forwarder[T]{inbox: inbox}, &Output[T]{ch: out}, drain
}

// TrySend enqueues v without blocking. It returns false if the inbox is full.
func (f *Forwarder[T]) TrySend(v T) bool {
	select {
	case f.inbox <- v:
		return true
	default:
		return false
	}
}

// Pending returns the number of items waiting in the inbox.
func (f *Forwarder[T]) Pending() int {
	return len(f.inbox)
}

// TryRecv takes the next forwarded item without blocking.
func (o *Output[T]) TryRecv() (T, bool) {
	select {
	case v := <-o.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of items ready in the output buffer.
func (o *Output[T]) Len() int {
	return len(o.ch)
}
