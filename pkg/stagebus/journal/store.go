// Package journal records selected events of a bus session as an
// append-only audit trail.
//
// The journal is fed by an ordinary stage (Worker) with isolated inputs, so
// a slow store never blocks publishers. Like every subscription it may drop
// events under sustained overload: it is a record, not a delivery guarantee.
package journal

import (
	"errors"
	"fmt"
	"time"
)

// Store persists journal entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records one event. Returns ErrDuplicateEntry if (sessionID, seq)
	// is already recorded.
	Append(sessionID string, seq uint64, eventType string, data []byte) error

	// List returns a session's entries ordered by seq.
	// Returns empty slice (not error) if the session has no entries.
	List(sessionID string) ([]Entry, error)

	// Sessions returns every session with at least one entry, sorted.
	Sessions() ([]string, error)

	// DeleteSession removes all entries of a session.
	// Returns nil if the session has no entries.
	DeleteSession(sessionID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Entry is one recorded event.
type Entry struct {
	SessionID  string
	Seq        uint64
	EventType  string
	Data       []byte
	RecordedAt time.Time
}

// Sentinel errors for journal operations.
var (
	// ErrDuplicateEntry indicates the (session, seq) pair is already recorded.
	ErrDuplicateEntry = errors.New("journal entry already exists")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrUnknownBackend indicates Open was given an unsupported backend.
	ErrUnknownBackend = errors.New("unknown journal backend")
)

// Open creates a store for a backend name: "memory" or "sqlite".
func Open(backend, path string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
