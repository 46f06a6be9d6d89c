// Package worker defines the stage contract and the run loop that drives it.
//
// A worker consumes its multiplexed inputs one batch at a time. Handler
// errors and panics never stop the loop: each one is reported as exactly
// one PipelineFailed event published on the bus. The exception is a strict
// bus rejecting an unrouted publish, which panics through Run.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
)

// ErrSnapshotsUnsupported is returned by Run when a worker has latest-slot
// inputs but does not implement SnapshotHandler.
var ErrSnapshotsUnsupported = errors.New("worker has latest inputs but no snapshot handler")

// Publisher publishes derived events. *bus.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) uint64
}

var _ Publisher = (*bus.Bus)(nil)

// Worker is a pipeline stage.
type Worker interface {
	// SubscriberID returns the stage's unique identity.
	SubscriberID() string

	// Subscription returns the inputs the stage consumes.
	Subscription() bus.Subscription

	// Handle processes one event from a FIFO-class input.
	Handle(ctx context.Context, evt *event.Enriched, pub Publisher) error
}

// SnapshotHandler is implemented by workers with latest-slot inputs.
// The batch holds every latest-slot update pending at once, in input order.
type SnapshotHandler interface {
	HandleSnapshots(ctx context.Context, batch []*event.Enriched, pub Publisher) error
}

// CheckSubscription reports ErrSnapshotsUnsupported when sub declares a
// latest-slot input and w is not a SnapshotHandler. Callers that rewrite
// subscriptions before building use it to reject the wiring up front.
func CheckSubscription(w Worker, sub bus.Subscription) error {
	if _, ok := w.(SnapshotHandler); ok {
		return nil
	}
	for _, in := range sub.Inputs {
		if in.Queue.Policy == queue.PolicyLatest {
			return fmt.Errorf("%w: %s input %s", ErrSnapshotsUnsupported, sub.SubscriberID, in.Type)
		}
	}
	return nil
}

// PanicError captures a handler panic.
type PanicError struct {
	SubscriberID string
	EventType    event.Type
	Value        any
	Stack        string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("subscriber %s panicked handling %s: %v", e.SubscriberID, e.EventType, e.Value)
}
