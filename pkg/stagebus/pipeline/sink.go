package pipeline

import (
	"context"
	"sync"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/worker"
)

// Outcome is the terminal result of a pipeline run: exactly one of Report
// or Failure is set.
type Outcome struct {
	Report  *ReportCompiled
	Failure *worker.PipelineFailed
}

// Failed reports whether the run ended in a stage failure.
func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// CompletionSink resolves the first ReportCompiled or PipelineFailed it
// sees into an Outcome. Later events are ignored.
type CompletionSink struct {
	once sync.Once
	done chan Outcome
}

// NewCompletionSink creates a sink whose Done channel receives one Outcome.
func NewCompletionSink() *CompletionSink {
	return &CompletionSink{done: make(chan Outcome, 1)}
}

// Done receives the outcome once it is resolved.
func (s *CompletionSink) Done() <-chan Outcome {
	return s.done
}

// SubscriberID implements worker.Worker.
func (s *CompletionSink) SubscriberID() string { return StageSink }

// Subscription implements worker.Worker.
func (s *CompletionSink) Subscription() bus.Subscription {
	return bus.Subscription{
		SubscriberID: StageSink,
		Inputs: []bus.Input{
			bus.On(TypeReportCompiled, queue.Isolated(4)),
			bus.On(worker.TypePipelineFailed, queue.DropOldest(4)),
		},
	}
}

// Handle implements worker.Worker.
func (s *CompletionSink) Handle(_ context.Context, evt *event.Enriched, _ worker.Publisher) error {
	if rc, ok := event.As[*ReportCompiled](evt.Event); ok {
		s.resolve(Outcome{Report: rc})
	}
	if pf, ok := event.As[*worker.PipelineFailed](evt.Event); ok {
		s.resolve(Outcome{Failure: pf})
	}
	return nil
}

func (s *CompletionSink) resolve(o Outcome) {
	s.once.Do(func() {
		s.done <- o
	})
}
