package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/observability"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/worker"
)

// SubscriberID is the identity of the journal stage.
const SubscriberID = "journal.recorder"

// DefaultOutputBuffer is the isolated output buffer per journaled type.
const DefaultOutputBuffer = 8

// Worker appends every event of its configured types to a Store.
//
// Write failures are logged and counted but never reported as
// PipelineFailed: a journal that journals pipeline.failed would otherwise
// feed on its own failures.
type Worker struct {
	store   Store
	types   []event.Type
	buffer  int
	logger  *slog.Logger
	metrics observability.MetricsRecorder
}

// WorkerOption configures a journal Worker.
type WorkerOption func(*Worker)

// WithOutputBuffer sets the isolated output buffer per input.
func WithOutputBuffer(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.buffer = n
		}
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics records every append attempt.
func WithMetrics(m observability.MetricsRecorder) WorkerOption {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

// NewWorker creates a journal stage recording types into store.
func NewWorker(store Store, types []event.Type, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:   store,
		types:   append([]event.Type(nil), types...),
		buffer:  DefaultOutputBuffer,
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SubscriberID implements worker.Worker.
func (w *Worker) SubscriberID() string { return SubscriberID }

// Subscription implements worker.Worker. Every type gets an isolated input
// so a slow store back-pressures only the journal's own forwarders.
func (w *Worker) Subscription() bus.Subscription {
	inputs := make([]bus.Input, 0, len(w.types))
	for _, t := range w.types {
		inputs = append(inputs, bus.On(t, queue.Isolated(w.buffer)))
	}
	return bus.Subscription{SubscriberID: SubscriberID, Inputs: inputs}
}

// Handle implements worker.Worker.
func (w *Worker) Handle(ctx context.Context, evt *event.Enriched, _ worker.Publisher) error {
	eventType := string(evt.Type())

	err := w.record(evt)
	w.metrics.RecordJournalAppend(ctx, eventType, err)
	if err != nil {
		observability.LogJournalError(w.logger, eventType, evt.Seq, err)
	}
	return nil
}

func (w *Worker) record(evt *event.Enriched) error {
	data, err := json.Marshal(evt.Event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type(), err)
	}
	return w.store.Append(evt.SessionID.String(), evt.Seq, string(evt.Type()), data)
}

var _ worker.Worker = (*Worker)(nil)
