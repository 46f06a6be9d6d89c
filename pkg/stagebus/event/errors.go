package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the type registry.
var (
	// ErrEmptyType indicates a variant reported an empty routing tag.
	ErrEmptyType = errors.New("event type is required")

	// ErrTypeConflict indicates a tag is already bound to another variant.
	ErrTypeConflict = errors.New("event type already bound to another variant")
)

// MismatchError reports that an event was not the expected variant.
type MismatchError struct {
	Expected Type
	Actual   Type
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected event_type=%s, got=%s", e.Expected, e.Actual)
}
