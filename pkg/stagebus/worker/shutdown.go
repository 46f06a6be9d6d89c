package worker

import "sync"

// Shutdown broadcasts a stop signal to every worker.
type Shutdown struct {
	ch   chan struct{}
	once sync.Once
}

// NewShutdown creates an untriggered broadcast.
func NewShutdown() *Shutdown {
	return &Shutdown{ch: make(chan struct{})}
}

// Listen returns a receiver that is closed when Trigger is called.
// Every listener observes the same single trigger.
func (s *Shutdown) Listen() <-chan struct{} {
	return s.ch
}

// Trigger signals every listener. Calls after the first are no-ops.
func (s *Shutdown) Trigger() {
	s.once.Do(func() { close(s.ch) })
}

// Triggered reports whether Trigger has been called.
func (s *Shutdown) Triggered() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
