package queue

// Notifier is a wake signal shared by all queues of one subscriber.
//
// It stores at most one pending permit: a Notify with no waiter is not lost,
// and several Notify calls before a wait collapse into one wake-up.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a notifier with no pending permit.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify wakes the waiter, or stores a permit if nobody is waiting.
// It never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the channel to wait on. Receiving consumes the permit.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}
