package bus

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
)

// Sentinel errors for subscription validation.
var (
	// ErrEmptySubscriber indicates a subscription without a subscriber id.
	ErrEmptySubscriber = errors.New("subscriber id is required")

	// ErrDuplicateSubscriber indicates two subscriptions share an id.
	ErrDuplicateSubscriber = errors.New("duplicate subscriber id")

	// ErrNoInputs indicates a subscription that declares no inputs.
	ErrNoInputs = errors.New("subscription has no inputs")

	// ErrEmptyEventType indicates an input with an empty type tag.
	ErrEmptyEventType = errors.New("input event type is required")

	// ErrDuplicateInput indicates a subscriber declared the same type twice.
	ErrDuplicateInput = errors.New("duplicate input event type")

	// ErrZeroCapacity indicates a bounded queue with capacity 0.
	ErrZeroCapacity = errors.New("queue capacity must be > 0")

	// ErrPolicyUnimplemented indicates a declared but unsupported policy.
	ErrPolicyUnimplemented = errors.New("queue policy not implemented")

	// ErrUnknownPolicy indicates an unrecognized queue policy.
	ErrUnknownPolicy = errors.New("unknown queue policy")

	// ErrUnregisteredType indicates an input type absent from the registry.
	ErrUnregisteredType = errors.New("event type not registered")
)

// ConfigError reports an invalid subscription at build time.
type ConfigError struct {
	SubscriberID string
	Type         event.Type // empty for subscription-level errors
	Err          error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("bus config: subscriber %q input %q: %v", e.SubscriberID, e.Type, e.Err)
	}
	return fmt.Sprintf("bus config: subscriber %q: %v", e.SubscriberID, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnroutedError is the panic value of a strict bus publishing an event
// no subscription accepts.
type UnroutedError struct {
	Type event.Type
	Seq  uint64
}

// Error implements the error interface.
func (e *UnroutedError) Error() string {
	return fmt.Sprintf("no route for event_type=%s (seq %d)", e.Type, e.Seq)
}
