package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/mux"
	"github.com/randalmurphal/stagebus/pkg/stagebus/observability"
)

// runConfig holds run loop configuration.
type runConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

func defaultRunConfig() runConfig {
	return runConfig{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures the run loop.
type RunOption func(*runConfig)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records per-handle metrics. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans wraps every handle in a trace span. Default: no-op.
func WithSpans(s observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// sessionScoped is implemented by publishers that know their session.
type sessionScoped interface {
	SessionID() uuid.UUID
}

type runner struct {
	runConfig
	w       Worker
	id      string
	pub     Publisher
	handled uint64
	failed  uint64
}

// Run drives w until shutdown is closed or ctx is done.
//
// Waiting for input races against shutdown; a handler already running is
// not interrupted by shutdown. Run returns nil on shutdown and ctx.Err() if
// ctx ends first. It returns ErrSnapshotsUnsupported without consuming
// anything if inputs has latest-slot inputs and w is not a SnapshotHandler.
// A handler panic carrying *bus.UnroutedError is not recovered.
//
// Example:
//
//	sd := worker.NewShutdown()
//	in, _ := wiring.Take(w.SubscriberID())
//	go worker.Run(ctx, w, in, eventBus, sd.Listen())
//	// ...
//	sd.Trigger()
func Run(ctx context.Context, w Worker, inputs *mux.Inputs, pub Publisher, shutdown <-chan struct{}, opts ...RunOption) error {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := w.SubscriberID()
	if _, ok := w.(SnapshotHandler); inputs.HasLatest() && !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotsUnsupported, id)
	}

	if s, ok := pub.(sessionScoped); ok {
		cfg.logger = observability.EnrichLogger(cfg.logger, s.SessionID().String(), id)
	}

	r := &runner{runConfig: cfg, w: w, id: id, pub: pub}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-shutdown:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	observability.LogWorkerStart(r.logger, id, inputs.Len())
	for {
		batch, err := inputs.Next(waitCtx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				observability.LogWorkerStop(r.logger, id, "context done", r.handled, r.failed)
				return ctxErr
			}
			observability.LogWorkerStop(r.logger, id, "shutdown", r.handled, r.failed)
			return nil
		}

		if batch.IsSnapshots() {
			r.handleSnapshots(ctx, batch.Snapshots)
		} else {
			r.handle(ctx, batch.Item)
		}
	}
}

func (r *runner) handle(ctx context.Context, item mux.Item) {
	evt := item.Event
	err := r.invoke(ctx, item.Type, evt.Seq, func(hctx context.Context) error {
		return r.w.Handle(hctx, evt, r.pub)
	})
	if err != nil {
		r.fail(ctx, evt, err)
	}
}

// handleSnapshots delivers the whole batch at once. A failure is reported
// against the newest update.
func (r *runner) handleSnapshots(ctx context.Context, items []mux.Item) {
	sh := r.w.(SnapshotHandler)

	batch := make([]*event.Enriched, len(items))
	newest := items[0]
	for i, it := range items {
		batch[i] = it.Event
		if it.Event.Seq > newest.Event.Seq {
			newest = it
		}
	}

	err := r.invoke(ctx, newest.Type, newest.Event.Seq, func(hctx context.Context) error {
		return sh.HandleSnapshots(hctx, batch, r.pub)
	})
	if err != nil {
		r.fail(ctx, newest.Event, err)
	}
}

// invoke runs fn with panic recovery, tracing and metrics. A strict bus
// refusing an unrouted publish is a wiring error, so that panic propagates.
func (r *runner) invoke(ctx context.Context, typ event.Type, seq uint64, fn func(context.Context) error) (err error) {
	hctx, span := r.spans.StartHandleSpan(ctx, r.id, string(typ), seq)
	start := time.Now()

	defer func() {
		if v := recover(); v != nil {
			if fatalPanic(v) {
				r.spans.EndSpanWithError(span, v.(error))
				panic(v)
			}
			err = &PanicError{
				SubscriberID: r.id,
				EventType:    typ,
				Value:        v,
				Stack:        string(debug.Stack()),
			}
		}

		elapsed := time.Since(start)
		r.spans.EndSpanWithError(span, err)
		r.metrics.RecordHandle(ctx, r.id, string(typ), elapsed, err)
		r.handled++
		if err == nil {
			observability.LogHandleComplete(r.logger, r.id, string(typ), seq, float64(elapsed.Microseconds())/1000)
		}
	}()

	return fn(hctx)
}

func fatalPanic(v any) bool {
	verr, ok := v.(error)
	if !ok {
		return false
	}
	var unrouted *bus.UnroutedError
	return errors.As(verr, &unrouted)
}

// fail publishes exactly one PipelineFailed for cause.
func (r *runner) fail(ctx context.Context, cause *event.Enriched, err error) {
	r.failed++
	observability.LogHandleError(r.logger, r.id, string(cause.Type()), cause.Seq, err)
	r.pub.Publish(ctx, NewPipelineFailed(r.id, cause, err))
}
