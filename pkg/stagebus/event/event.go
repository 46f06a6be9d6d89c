// Package event defines the typed events that flow through a stagebus.
//
// The set of event variants is closed: every variant embeds Header, which
// carries identity, causal lineage and creation time and also seals the
// Event interface. The variant itself supplies a constant Type tag that the
// bus uses for routing and nothing else.
package event

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Type is the stable routing tag of an event variant (e.g. "audio.transcribed").
type Type string

// Event is implemented by every event variant.
// Events are immutable once created and may be shared between subscribers.
type Event interface {
	// ID returns the globally unique event identifier.
	ID() uuid.UUID

	// ParentIDs returns the ids of the events whose handling produced this one.
	// The returned slice is a copy.
	ParentIDs() []uuid.UUID

	// Type returns the variant's routing tag.
	Type() Type

	// Timestamp returns when the event was created.
	Timestamp() time.Time

	header() Header
}

// Header holds the identity and lineage common to all variants.
// Embed it by value in a variant struct.
type Header struct {
	EventID   uuid.UUID   `json:"id"`
	Parents   []uuid.UUID `json:"parent_ids,omitempty"`
	CreatedAt time.Time   `json:"timestamp"`
}

// ID returns the unique event identifier.
func (h Header) ID() uuid.UUID {
	return h.EventID
}

// ParentIDs returns a copy of the causal parent ids.
func (h Header) ParentIDs() []uuid.UUID {
	return slices.Clone(h.Parents)
}

// Timestamp returns the creation time.
func (h Header) Timestamp() time.Time {
	return h.CreatedAt
}

func (h Header) header() Header {
	return h
}

// Option configures header creation.
type Option func(*Header)

// WithEventID sets a specific event ID (default: random UUID).
func WithEventID(id uuid.UUID) Option {
	return func(h *Header) {
		h.EventID = id
	}
}

// WithParents appends causal parent ids.
func WithParents(ids ...uuid.UUID) Option {
	return func(h *Header) {
		h.Parents = append(h.Parents, ids...)
	}
}

// CausedBy records parent as the event whose handling produced the new one.
func CausedBy(parent Event) Option {
	return func(h *Header) {
		h.Parents = append(h.Parents, parent.ID())
	}
}

// WithTimestamp sets a specific creation time (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(h *Header) {
		h.CreatedAt = t
	}
}

// NewHeader creates a header with a fresh id and the current time.
// Events created by an entry point have no parents.
func NewHeader(opts ...Option) Header {
	h := Header{
		EventID:   uuid.New(),
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// Enriched wraps an event with the metadata the bus assigns at publish time.
// A single *Enriched is shared by every queue the event is delivered into.
type Enriched struct {
	Event Event

	// Seq is the bus-wide publish sequence number. It orders publish calls,
	// not consumption.
	Seq uint64

	// SessionID identifies the bus instance that accepted the event.
	SessionID uuid.UUID

	// IngestedAt is the monotonic instant of publish.
	IngestedAt time.Time
}

// Type returns the wrapped event's routing tag.
func (e *Enriched) Type() Type {
	return e.Event.Type()
}

// As returns the event as variant T if it is one.
func As[T Event](e Event) (T, bool) {
	v, ok := e.(T)
	return v, ok
}

// Expect returns the event as variant T or a *MismatchError naming the
// expected tag and the tag actually received.
func Expect[T Event](e Event, expected Type) (T, error) {
	v, ok := e.(T)
	if !ok {
		var actual Type
		if e != nil {
			actual = e.Type()
		}
		return v, &MismatchError{Expected: expected, Actual: actual}
	}
	return v, nil
}
