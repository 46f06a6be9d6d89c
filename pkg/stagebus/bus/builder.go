package bus

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/mux"
	"github.com/randalmurphal/stagebus/pkg/stagebus/observability"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/route"
)

// Builder collects subscriptions and builds a Bus.
//
// Example:
//
//	b, wiring, drains, err := bus.NewBuilder(bus.Config{}).
//		Subscribe(bus.Subscription{
//			SubscriberID: "audio.transcribe",
//			Inputs:       []bus.Input{bus.On("audio.extracted", queue.DropOldest(4))},
//		}).
//		Build()
type Builder struct {
	cfg  Config
	subs []Subscription
}

// NewBuilder creates a builder.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// Subscribe adds a subscription. Validation happens in Build.
func (b *Builder) Subscribe(sub Subscription) *Builder {
	b.subs = append(b.subs, sub)
	return b
}

// Build validates every subscription and creates the bus, the per-subscriber
// inputs and the drain tasks of isolated inputs. The drain tasks must be
// started (see StartDrains) before anything publishes.
func (b *Builder) Build() (*Bus, *Wiring, []queue.DrainTask, error) {
	if err := b.validate(); err != nil {
		return nil, nil, nil, err
	}

	routes := make(map[event.Type][]route.Route)
	wiring := &Wiring{inputs: make(map[string]*mux.Inputs, len(b.subs))}
	var drains []queue.DrainTask

	for _, sub := range b.subs {
		wake := queue.NewNotifier()
		inputs := mux.New(sub.SubscriberID, wake)

		for _, in := range sub.Inputs {
			var inbox route.Inbox
			switch in.Queue.Policy {
			case queue.PolicyLatest:
				slot := queue.NewLatestSlot[*event.Enriched](wake)
				inputs.AddLatest(in.Type, slot)
				inbox = route.LatestInbox{Slot: slot}
			case queue.PolicyDropOldest:
				q := queue.NewDropOldestQueue[*event.Enriched](in.Queue.Capacity, wake)
				inputs.AddFIFO(in.Type, q)
				inbox = route.DropOldestInbox{Queue: q}
			case queue.PolicyIsolated:
				fwd, out, drain := queue.NewForwarder[*event.Enriched](in.Queue.Capacity, wake)
				inputs.AddFIFO(in.Type, out)
				inbox = route.IsolatedInbox{Forwarder: fwd}
				drains = append(drains, drain)
			}

			routes[in.Type] = append(routes[in.Type], route.Route{
				SubscriberID: sub.SubscriberID,
				Type:         in.Type,
				Kind:         in.Queue,
				Inbox:        inbox,
				Drops:        &atomic.Uint64{},
			})
		}
		wiring.inputs[sub.SubscriberID] = inputs
	}

	sessionID := b.cfg.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	logger := b.cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bus := &Bus{
		sessionID: sessionID,
		strict:    b.cfg.StrictRouting,
		table:     route.NewTable(routes),
		logger:    logger,
	}

	var routeCount int
	for _, rs := range routes {
		routeCount += len(rs)
	}
	observability.LogBusBuilt(logger, sessionID.String(), len(b.subs), routeCount, b.cfg.StrictRouting)

	return bus, wiring, drains, nil
}

func (b *Builder) validate() error {
	seen := make(map[string]bool, len(b.subs))
	for _, sub := range b.subs {
		if strings.TrimSpace(sub.SubscriberID) == "" {
			return &ConfigError{Err: ErrEmptySubscriber}
		}
		if seen[sub.SubscriberID] {
			return &ConfigError{SubscriberID: sub.SubscriberID, Err: ErrDuplicateSubscriber}
		}
		seen[sub.SubscriberID] = true

		if len(sub.Inputs) == 0 {
			return &ConfigError{SubscriberID: sub.SubscriberID, Err: ErrNoInputs}
		}

		types := make(map[event.Type]bool, len(sub.Inputs))
		for _, in := range sub.Inputs {
			if err := b.validateInput(in, types); err != nil {
				return &ConfigError{SubscriberID: sub.SubscriberID, Type: in.Type, Err: err}
			}
		}
	}
	return nil
}

func (b *Builder) validateInput(in Input, types map[event.Type]bool) error {
	if strings.TrimSpace(string(in.Type)) == "" {
		return ErrEmptyEventType
	}
	if types[in.Type] {
		return ErrDuplicateInput
	}
	types[in.Type] = true

	if b.cfg.Registry != nil && !b.cfg.Registry.Has(in.Type) {
		return ErrUnregisteredType
	}

	switch in.Queue.Policy {
	case queue.PolicyLatest:
		return nil
	case queue.PolicyDropOldest, queue.PolicyIsolated:
		if in.Queue.Capacity < 1 {
			return ErrZeroCapacity
		}
		return nil
	case queue.PolicyDropNewest:
		return ErrPolicyUnimplemented
	default:
		return ErrUnknownPolicy
	}
}

// Wiring holds the subscriber side of every subscription until taken.
type Wiring struct {
	mu     sync.Mutex
	inputs map[string]*mux.Inputs
}

// Take hands out a subscriber's inputs. Only the first call for an id
// succeeds, so each queue has exactly one consumer.
func (w *Wiring) Take(subscriberID string) (*mux.Inputs, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	in, ok := w.inputs[subscriberID]
	if ok {
		delete(w.inputs, subscriberID)
	}
	return in, ok
}

// Pending returns the subscribers whose inputs were not taken, sorted.
func (w *Wiring) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]string, 0, len(w.inputs))
	for id := range w.inputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartDrains runs each drain task in its own goroutine and returns once all
// of them are running. The returned channel is closed after every task has
// returned, which happens when ctx is done.
func StartDrains(ctx context.Context, tasks []queue.DrainTask) <-chan struct{} {
	var started, running sync.WaitGroup
	started.Add(len(tasks))
	running.Add(len(tasks))

	for _, task := range tasks {
		go func() {
			defer running.Done()
			started.Done()
			task(ctx)
		}()
	}
	started.Wait()

	done := make(chan struct{})
	go func() {
		running.Wait()
		close(done)
	}()
	return done
}
