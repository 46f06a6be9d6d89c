package journal

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory journal.
// Data is lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[uint64]Entry // sessionID -> seq -> entry
	closed   bool
}

// NewMemoryStore creates an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[uint64]Entry),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(sessionID string, seq uint64, eventType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	entries := m.sessions[sessionID]
	if entries == nil {
		entries = make(map[uint64]Entry)
		m.sessions[sessionID] = entries
	}
	if _, ok := entries[seq]; ok {
		return ErrDuplicateEntry
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	entries[seq] = Entry{
		SessionID:  sessionID,
		Seq:        seq,
		EventType:  eventType,
		Data:       stored,
		RecordedAt: time.Now().UTC(),
	}
	return nil
}

// List implements Store.
func (m *MemoryStore) List(sessionID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	entries := m.sessions[sessionID]
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Data = append([]byte(nil), e.Data...)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Sessions implements Store.
func (m *MemoryStore) Sessions() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteSession implements Store.
func (m *MemoryStore) DeleteSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.sessions, sessionID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = nil
	return nil
}
