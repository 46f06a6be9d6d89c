// Package pipeline wires the video-report stage graph onto a stagebus.
//
// Each stage consumes one event type and publishes the next:
//
//	job.requested -> video.download -> video.downloaded
//	  -> audio.extract -> audio.extracted
//	  -> audio.transcribe -> audio.transcribed
//	  -> sections.analyze -> sections.analyzed
//	  -> report.compile -> report.compiled -> completion.sink
//
// A failing stage publishes pipeline.failed, which the completion sink also
// resolves. Every external side effect sits behind a collaborator interface.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/config"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/journal"
	"github.com/randalmurphal/stagebus/pkg/stagebus/observability"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/route"
	"github.com/randalmurphal/stagebus/pkg/stagebus/worker"
)

// ErrMissingCollaborator indicates Options.Collaborators has a nil field.
var ErrMissingCollaborator = errors.New("missing collaborator")

func missingCollaborator(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingCollaborator, name)
}

// Options configures Start.
type Options struct {
	// Config is the stagebus configuration. Nil uses config.Default().
	Config *config.Config

	// Collaborators performs the external work of each stage. Required.
	Collaborators Collaborators

	// Logger overrides the logger built from Config.Logging.
	Logger *slog.Logger

	// Journal overrides the store built from Config.Journal. The caller
	// keeps ownership and closes it.
	Journal journal.Store
}

// Handle controls a running pipeline.
type Handle struct {
	bus      *bus.Bus
	sink     *CompletionSink
	journal  journal.Store
	shutdown *worker.Shutdown

	workers      sync.WaitGroup
	stopDrains   context.CancelFunc
	drainsDone   <-chan struct{}
	registration metric.Registration
	ownsJournal  bool

	stopOnce sync.Once
	stopErr  error
}

// Start builds the bus, starts the drain tasks and then every worker.
//
// Collaborator calls are retried per Config.Retry. Handlers receive ctx;
// cancelling it aborts in-flight collaborator calls, while Stop lets them
// finish.
func Start(ctx context.Context, opts Options) (*Handle, error) {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := opts.Collaborators.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = cfg.Logger(os.Stderr); err != nil {
			return nil, err
		}
	}

	collab := opts.Collaborators
	if cfg.Retry.MaxAttempts > 1 {
		retry := cfg.Retry
		if retry.OnRetry == nil {
			retry.OnRetry = func(op string, attempt int, err error, wait time.Duration) {
				observability.LogRetry(logger, op, attempt, err, wait)
			}
		}
		collab = collab.WithRetry(retry)
	}

	registry := Registry()

	var (
		metrics observability.MetricsRecorder = observability.NoopMetrics{}
		spans   observability.SpanManager     = observability.NoopSpanManager{}
	)
	if cfg.Metrics {
		metrics = observability.NewMetricsRecorder()
	}
	if cfg.Tracing {
		spans = observability.NewSpanManager()
	}

	sink := NewCompletionSink()
	workers := append(Stages(collab), sink)

	store, ownsJournal, err := openJournal(cfg.Journal, opts.Journal)
	if err != nil {
		return nil, err
	}
	h := &Handle{sink: sink, journal: store, ownsJournal: ownsJournal}
	if store != nil {
		types := cfg.Journal.Types
		if len(types) == 0 {
			types = registry.Types()
		}
		workers = append(workers, journal.NewWorker(store, types,
			journal.WithLogger(logger),
			journal.WithMetrics(metrics),
		))
	}

	eb, wiring, drains, err := build(cfg, logger, registry, workers)
	if err != nil {
		h.closeJournal()
		return nil, err
	}
	h.bus = eb

	if cfg.Metrics {
		reg, err := observability.ObserveBus(eb, eb.SessionID().String())
		if err != nil {
			h.closeJournal()
			return nil, fmt.Errorf("observe bus: %w", err)
		}
		h.registration = reg
	}

	// Drains must run before anything is published into an isolated inbox.
	drainCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.stopDrains = cancel
	h.drainsDone = bus.StartDrains(drainCtx, drains)

	h.shutdown = worker.NewShutdown()
	runOpts := []worker.RunOption{
		worker.WithLogger(logger),
		worker.WithMetrics(metrics),
		worker.WithSpans(spans),
	}
	for _, w := range workers {
		inputs, ok := wiring.Take(w.SubscriberID())
		if !ok {
			continue
		}
		h.workers.Add(1)
		go func(w worker.Worker) {
			defer h.workers.Done()
			if err := worker.Run(ctx, w, inputs, eb, h.shutdown.Listen(), runOpts...); err != nil &&
				!errors.Is(err, context.Canceled) {
				logger.Error("worker exited", "subscriber_id", w.SubscriberID(), "error", err)
			}
		}(w)
	}

	return h, nil
}

// Check builds the bus cfg describes without starting anything and returns
// its routing table.
func Check(cfg config.Config, logger *slog.Logger) ([]route.Info, error) {
	registry := Registry()
	workers := append(Stages(Collaborators{}), NewCompletionSink())
	if cfg.Journal.Backend != "" && cfg.Journal.Backend != config.JournalNone {
		types := cfg.Journal.Types
		if len(types) == 0 {
			types = registry.Types()
		}
		workers = append(workers, journal.NewWorker(nil, types))
	}

	eb, _, _, err := build(cfg, logger, registry, workers)
	if err != nil {
		return nil, err
	}
	return eb.Routes(), nil
}

func build(cfg config.Config, logger *slog.Logger, registry *event.Registry, workers []worker.Worker) (*bus.Bus, *bus.Wiring, []queue.DrainTask, error) {
	subs := make([]bus.Subscription, 0, len(workers))
	for _, w := range workers {
		subs = append(subs, w.Subscription())
	}
	subs, err := cfg.Apply(subs)
	if err != nil {
		return nil, nil, nil, err
	}
	// Overrides may turn a FIFO input into a latest slot.
	for i, s := range subs {
		if err := worker.CheckSubscription(workers[i], s); err != nil {
			return nil, nil, nil, err
		}
	}

	builder := bus.NewBuilder(cfg.BusConfig(logger, registry))
	for _, s := range subs {
		builder.Subscribe(s)
	}
	return builder.Build()
}

func openJournal(cfg config.JournalConfig, override journal.Store) (journal.Store, bool, error) {
	if override != nil {
		return override, false, nil
	}
	if cfg.Backend == "" || cfg.Backend == config.JournalNone {
		return nil, false, nil
	}
	store, err := journal.Open(cfg.Backend, cfg.Path)
	if err != nil {
		return nil, false, fmt.Errorf("open journal: %w", err)
	}
	return store, true, nil
}

// Submit publishes a JobRequested for job and returns its sequence number.
func (h *Handle) Submit(ctx context.Context, job Job) uint64 {
	return h.bus.Publish(ctx, &JobRequested{Header: event.NewHeader(), Job: job})
}

// Done receives the run's single Outcome.
func (h *Handle) Done() <-chan Outcome {
	return h.sink.Done()
}

// Bus returns the underlying bus.
func (h *Handle) Bus() *bus.Bus {
	return h.bus
}

// Journal returns the journal store, or nil when journaling is off.
func (h *Handle) Journal() journal.Store {
	return h.journal
}

// Stats returns a snapshot of the bus counters.
func (h *Handle) Stats() bus.Stats {
	return h.bus.Stats()
}

// Stop broadcasts shutdown, waits for every worker to return and then stops
// the drain tasks. It is safe to call more than once.
func (h *Handle) Stop() error {
	h.stopOnce.Do(func() {
		h.shutdown.Trigger()
		h.workers.Wait()
		h.stopDrains()
		<-h.drainsDone

		var errs []error
		if h.registration != nil {
			if err := h.registration.Unregister(); err != nil {
				errs = append(errs, fmt.Errorf("unregister bus metrics: %w", err))
			}
		}
		if err := h.closeJournal(); err != nil {
			errs = append(errs, err)
		}
		h.stopErr = errors.Join(errs...)
	})
	return h.stopErr
}

func (h *Handle) closeJournal() error {
	if !h.ownsJournal || h.journal == nil {
		return nil
	}
	if err := h.journal.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}
