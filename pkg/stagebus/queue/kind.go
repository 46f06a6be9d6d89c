// Package queue provides the per-subscription inboxes of a stagebus.
//
// Each subscription picks exactly one delivery policy:
//   - Latest: a single slot; a new delivery overwrites whatever is held
//   - DropOldest: a bounded ring buffer that evicts its front when full
//   - Isolated: a small non-blocking inbox drained by a background task
//     into a separately sized output channel
//
// Delivery is never blocking. Every queue wakes its subscriber's Notifier
// when an item becomes readable.
package queue

import (
	"errors"
	"fmt"
	"strings"
)

// Policy identifies a delivery/backpressure policy.
type Policy int

const (
	// PolicyLatest keeps only the newest item.
	PolicyLatest Policy = iota + 1

	// PolicyDropOldest is a bounded FIFO that evicts the oldest item when full.
	PolicyDropOldest

	// PolicyDropNewest is a bounded FIFO that rejects new items when full.
	// Declared but not implemented; the bus builder rejects it.
	PolicyDropNewest

	// PolicyIsolated forwards through a drain task so subscriber
	// backpressure never reaches publishers.
	PolicyIsolated
)

// String returns the policy's configuration name.
func (p Policy) String() string {
	switch p {
	case PolicyLatest:
		return "latest"
	case PolicyDropOldest:
		return "fifo_drop_oldest"
	case PolicyDropNewest:
		return "bounded_drop_newest"
	case PolicyIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// Kind is a policy plus its size parameter.
// Capacity is the ring size for DropOldest/DropNewest and the output
// buffer for Isolated. It is ignored for Latest.
type Kind struct {
	Policy   Policy
	Capacity int
}

// Latest returns a single-slot kind.
func Latest() Kind {
	return Kind{Policy: PolicyLatest}
}

// DropOldest returns a bounded FIFO kind that evicts its oldest item.
func DropOldest(capacity int) Kind {
	return Kind{Policy: PolicyDropOldest, Capacity: capacity}
}

// DropNewest returns a bounded FIFO kind that rejects new items when full.
func DropNewest(capacity int) Kind {
	return Kind{Policy: PolicyDropNewest, Capacity: capacity}
}

// Isolated returns a forwarder kind with the given output buffer.
func Isolated(outputBuffer int) Kind {
	return Kind{Policy: PolicyIsolated, Capacity: outputBuffer}
}

// String formats the kind for logs.
func (k Kind) String() string {
	if k.Policy == PolicyLatest {
		return k.Policy.String()
	}
	return fmt.Sprintf("%s(%d)", k.Policy, k.Capacity)
}

// ErrUnknownPolicy indicates a policy name that does not parse.
var ErrUnknownPolicy = errors.New("unknown queue policy")

// ParseKind builds a Kind from a configuration policy name.
func ParseKind(name string, capacity int) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latest", "latest1":
		return Latest(), nil
	case "fifo_drop_oldest", "drop_oldest", "fifo":
		return DropOldest(capacity), nil
	case "bounded_drop_newest", "drop_newest":
		return DropNewest(capacity), nil
	case "isolated":
		return Isolated(capacity), nil
	default:
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
