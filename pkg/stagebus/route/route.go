// Package route holds the immutable routing table of a stagebus: for each
// event type tag, the ordered inboxes of the subscriptions interested in it.
package route

import (
	"sort"
	"sync/atomic"

	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
)

// Inbox is the publisher-facing side of one subscription's queue.
type Inbox interface {
	// TryDeliver attempts a non-blocking delivery.
	// It returns false if the policy rejected the event.
	TryDeliver(evt *event.Enriched) bool
}

// LatestInbox delivers into a latest slot. Delivery always succeeds.
type LatestInbox struct {
	Slot *queue.LatestSlot[*event.Enriched]
}

// TryDeliver implements Inbox.
func (in LatestInbox) TryDeliver(evt *event.Enriched) bool {
	in.Slot.Set(evt)
	return true
}

// DropOldestInbox delivers into a drop-oldest ring. Delivery always
// succeeds; an eviction is a policy outcome, not a rejection.
type DropOldestInbox struct {
	Queue *queue.DropOldestQueue[*event.Enriched]
}

// TryDeliver implements Inbox.
func (in DropOldestInbox) TryDeliver(evt *event.Enriched) bool {
	in.Queue.Push(evt)
	return true
}

// IsolatedInbox delivers into a forwarder's inbox. Delivery fails when the
// inbox is full.
type IsolatedInbox struct {
	Forwarder *queue.Forwarder[*event.Enriched]
}

// TryDeliver implements Inbox.
func (in IsolatedInbox) TryDeliver(evt *event.Enriched) bool {
	return in.Forwarder.TrySend(evt)
}

// Route binds one subscription's inbox to an event type.
type Route struct {
	SubscriberID string
	Type         event.Type
	Kind         queue.Kind
	Inbox        Inbox

	// Drops counts deliveries the inbox rejected.
	Drops *atomic.Uint64
}

// Table maps event type tags to routes. It is never mutated after NewTable.
type Table struct {
	routes map[event.Type][]Route
}

// NewTable freezes routes into a table. Route order within a type is kept.
func NewTable(routes map[event.Type][]Route) *Table {
	frozen := make(map[event.Type][]Route, len(routes))
	for t, rs := range routes {
		frozen[t] = append([]Route(nil), rs...)
	}
	return &Table{routes: frozen}
}

// Lookup returns the routes for a type tag. The slice must not be modified.
func (t *Table) Lookup(tag event.Type) ([]Route, bool) {
	rs, ok := t.routes[tag]
	return rs, ok
}

// Types returns all routed type tags in sorted order.
func (t *Table) Types() []event.Type {
	types := make([]event.Type, 0, len(t.routes))
	for tag := range t.routes {
		types = append(types, tag)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Info describes a route without exposing its inbox.
type Info struct {
	Type         event.Type
	SubscriberID string
	Kind         queue.Kind
	Drops        uint64
}

// Describe returns one Info per route, ordered by type then declaration order.
func (t *Table) Describe() []Info {
	var infos []Info
	for _, tag := range t.Types() {
		for _, r := range t.routes[tag] {
			infos = append(infos, Info{
				Type:         tag,
				SubscriberID: r.SubscriberID,
				Kind:         r.Kind,
				Drops:        r.Drops.Load(),
			})
		}
	}
	return infos
}
