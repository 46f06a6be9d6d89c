// Package bus implements the stagebus event bus and its builder.
//
// A Bus is built once from a fixed set of subscriptions. Publishing stamps
// the event with a sequence number, the session id and the ingest instant,
// looks up the routes for its type tag and delivers it into every route's
// queue without blocking. The routing table never changes after Build.
package bus

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/observability"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/route"
)

// Config configures a bus.
type Config struct {
	// SessionID stamps every published event. A zero value gets a random id.
	SessionID uuid.UUID

	// StrictRouting makes publishing an unrouted event panic.
	StrictRouting bool

	// Registry, when set, requires every input type to be registered.
	Registry *event.Registry

	// Logger receives bus diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Input declares interest in one event type with one queue policy.
type Input struct {
	Type  event.Type
	Queue queue.Kind
}

// On is shorthand for an Input.
func On(t event.Type, kind queue.Kind) Input {
	return Input{Type: t, Queue: kind}
}

// Subscription is a subscriber's fixed set of inputs.
type Subscription struct {
	SubscriberID string
	Inputs       []Input
}

// Stats is a point-in-time snapshot of bus counters.
type Stats struct {
	Published uint64
	Unrouted  uint64
	Routes    []route.Info
}

// Dropped returns the sum of per-route drops.
func (s Stats) Dropped() uint64 {
	var n uint64
	for _, r := range s.Routes {
		n += r.Drops
	}
	return n
}

// Bus fans events out to subscriber queues. It is safe for concurrent use.
type Bus struct {
	sessionID uuid.UUID
	strict    bool
	table     *route.Table
	logger    *slog.Logger

	seq      atomic.Uint64
	unrouted atomic.Uint64
}

// Publish stamps and routes evt and returns its sequence number.
// It never blocks and never fails. A strict bus panics with *UnroutedError
// if no subscription accepts evt's type.
func (b *Bus) Publish(ctx context.Context, evt event.Event) uint64 {
	seq := b.seq.Add(1) - 1
	enriched := &event.Enriched{
		Event:      evt,
		Seq:        seq,
		SessionID:  b.sessionID,
		IngestedAt: time.Now(),
	}
	tag := evt.Type()

	observability.AddSpanEvent(ctx, "stagebus.publish",
		attribute.String("event.type", string(tag)),
		attribute.Int64("event.seq", int64(seq)),
	)

	routes, ok := b.table.Lookup(tag)
	if !ok {
		b.unrouted.Add(1)
		observability.LogUnrouted(b.logger, string(tag), seq)
		if b.strict {
			panic(&UnroutedError{Type: tag, Seq: seq})
		}
		return seq
	}

	for _, r := range routes {
		if !r.Inbox.TryDeliver(enriched) {
			r.Drops.Add(1)
			observability.LogDrop(b.logger, r.SubscriberID, string(tag), seq)
		}
	}
	return seq
}

// SessionID returns the id stamped on every event.
func (b *Bus) SessionID() uuid.UUID {
	return b.sessionID
}

// Published returns how many events have been published.
func (b *Bus) Published() uint64 {
	return b.seq.Load()
}

// Unrouted returns how many published events had no route.
func (b *Bus) Unrouted() uint64 {
	return b.unrouted.Load()
}

// Dropped returns how many deliveries queue policies rejected.
func (b *Bus) Dropped() uint64 {
	var n uint64
	for _, r := range b.table.Describe() {
		n += r.Drops
	}
	return n
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.seq.Load(),
		Unrouted:  b.unrouted.Load(),
		Routes:    b.table.Describe(),
	}
}

// Routes describes the routing table.
func (b *Bus) Routes() []route.Info {
	return b.table.Describe()
}

var _ observability.BusCounters = (*Bus)(nil)
