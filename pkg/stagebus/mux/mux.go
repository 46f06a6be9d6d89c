// Package mux merges the queues of one subscriber into a single fair stream.
//
// Latest-slot inputs are drained together into a snapshot batch. All other
// inputs are FIFO-class and are scanned round-robin, one item per call,
// starting just past the input that produced the previous item.
package mux

import (
	"context"

	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
)

// Item is one event taken from one input.
type Item struct {
	Type  event.Type
	Event *event.Enriched
}

// Batch is the result of Next: either every pending latest-slot update, or a
// single FIFO item.
type Batch struct {
	Snapshots []Item
	Item      Item
}

// IsSnapshots reports whether the batch carries latest-slot updates.
func (b Batch) IsSnapshots() bool {
	return len(b.Snapshots) > 0
}

type latestInput struct {
	typ  event.Type
	slot *queue.LatestSlot[*event.Enriched]
}

type fifoInput struct {
	typ  event.Type
	recv queue.Receiver[*event.Enriched]
}

// Inputs is a subscriber's multiplexed view of its queues.
// It must be used by a single goroutine.
type Inputs struct {
	subscriberID string
	latest       []latestInput
	fifo         []fifoInput
	wake         *queue.Notifier
	cursor       int
}

// New creates an empty multiplexer. wake must be the notifier shared by
// every queue added to it.
func New(subscriberID string, wake *queue.Notifier) *Inputs {
	return &Inputs{subscriberID: subscriberID, wake: wake}
}

// AddLatest adds a latest-slot input.
func (in *Inputs) AddLatest(t event.Type, slot *queue.LatestSlot[*event.Enriched]) {
	in.latest = append(in.latest, latestInput{typ: t, slot: slot})
}

// AddFIFO adds a FIFO-class input. Inputs are scanned in the order added.
func (in *Inputs) AddFIFO(t event.Type, recv queue.Receiver[*event.Enriched]) {
	in.fifo = append(in.fifo, fifoInput{typ: t, recv: recv})
}

// SubscriberID returns the owning subscriber.
func (in *Inputs) SubscriberID() string {
	return in.subscriberID
}

// HasLatest reports whether any latest-slot input exists.
func (in *Inputs) HasLatest() bool {
	return len(in.latest) > 0
}

// Len returns the number of inputs.
func (in *Inputs) Len() int {
	return len(in.latest) + len(in.fifo)
}

// Buffered returns how many items the FIFO-class input for t holds ready.
// It returns 0 for latest-slot and unknown inputs.
func (in *Inputs) Buffered(t event.Type) int {
	for _, f := range in.fifo {
		if f.typ == t {
			return f.recv.Len()
		}
	}
	return 0
}

// Next returns the next batch, waiting until one is available.
// It returns ctx.Err() only if ctx is done while waiting.
func (in *Inputs) Next(ctx context.Context) (Batch, error) {
	for {
		if b, ok := in.poll(); ok {
			return b, nil
		}

		// A wake-up can be stale: the item that caused it may already have
		// been taken by an earlier poll. Loop and poll again.
		select {
		case <-in.wake.C():
		case <-ctx.Done():
			return Batch{}, ctx.Err()
		}
	}
}

// TryNext returns the next batch without waiting.
func (in *Inputs) TryNext() (Batch, bool) {
	return in.poll()
}

func (in *Inputs) poll() (Batch, bool) {
	var snaps []Item
	for _, l := range in.latest {
		if evt, ok := l.slot.TryRecv(); ok {
			snaps = append(snaps, Item{Type: l.typ, Event: evt})
		}
	}
	if len(snaps) > 0 {
		return Batch{Snapshots: snaps}, true
	}

	n := len(in.fifo)
	for i := 0; i < n; i++ {
		idx := (in.cursor + i) % n
		f := in.fifo[idx]
		if evt, ok := f.recv.TryRecv(); ok {
			in.cursor = (idx + 1) % n
			return Batch{Item: Item{Type: f.typ, Event: evt}}, true
		}
	}
	return Batch{}, false
}
