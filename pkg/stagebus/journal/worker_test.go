package journal_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/journal"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
	"github.com/randalmurphal/stagebus/pkg/stagebus/worker"
)

type jobRequested struct {
	event.Header
	URL string `json:"url"`
}

func (jobRequested) Type() event.Type { return "job.requested" }

type heartbeat struct {
	event.Header
}

func (heartbeat) Type() event.Type { return "heartbeat" }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runJournal wires a journal worker onto a fresh bus and starts it.
func runJournal(t *testing.T, w *journal.Worker) *bus.Bus {
	t.Helper()
	eb, wiring, drains, err := bus.NewBuilder(bus.Config{Logger: quietLogger()}).
		Subscribe(w.Subscription()).
		Build()
	require.NoError(t, err)

	in, ok := wiring.Take(journal.SubscriberID)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	drained := bus.StartDrains(ctx, drains)
	sd := worker.NewShutdown()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx, w, in, eb, sd.Listen(), worker.WithLogger(quietLogger()))
	}()
	t.Cleanup(func() {
		sd.Trigger()
		<-done
		cancel()
		<-drained
	})
	return eb
}

func TestWorkerSubscription(t *testing.T) {
	w := journal.NewWorker(journal.NewMemoryStore(), []event.Type{"a", "b"}, journal.WithOutputBuffer(3))
	sub := w.Subscription()

	assert.Equal(t, journal.SubscriberID, sub.SubscriberID)
	assert.Equal(t, []bus.Input{
		bus.On("a", queue.Isolated(3)),
		bus.On("b", queue.Isolated(3)),
	}, sub.Inputs)
}

func TestWorkerRecordsEvents(t *testing.T) {
	store := journal.NewMemoryStore()
	w := journal.NewWorker(store, []event.Type{"job.requested"}, journal.WithLogger(quietLogger()))
	eb := runJournal(t, w)

	req := &jobRequested{Header: event.NewHeader(), URL: "https://example.com/v.mp4"}
	seq := eb.Publish(context.Background(), req)

	var entries []journal.Entry
	require.Eventually(t, func() bool {
		var err error
		entries, err = store.List(eb.SessionID().String())
		return err == nil && len(entries) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, seq, entries[0].Seq)
	assert.Equal(t, "job.requested", entries[0].EventType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Data, &decoded))
	assert.Equal(t, req.ID().String(), decoded["id"])
	assert.Equal(t, "https://example.com/v.mp4", decoded["url"])
}

// failingStore rejects every append.
type failingStore struct {
	journal.Store
	attempts chan struct{}
}

func (f *failingStore) Append(string, uint64, string, []byte) error {
	f.attempts <- struct{}{}
	return errors.New("disk full")
}

type failedRecorder struct {
	failures chan *worker.PipelineFailed
}

func (f *failedRecorder) SubscriberID() string { return "failure.watch" }

func (f *failedRecorder) Subscription() bus.Subscription {
	return bus.Subscription{
		SubscriberID: f.SubscriberID(),
		Inputs:       []bus.Input{bus.On(worker.TypePipelineFailed, queue.DropOldest(4))},
	}
}

func (f *failedRecorder) Handle(_ context.Context, evt *event.Enriched, _ worker.Publisher) error {
	if pf, ok := event.As[*worker.PipelineFailed](evt.Event); ok {
		f.failures <- pf
	}
	return nil
}

func TestWorkerWriteFailureIsNotPipelineFailure(t *testing.T) {
	store := &failingStore{Store: journal.NewMemoryStore(), attempts: make(chan struct{}, 4)}
	w := journal.NewWorker(store, []event.Type{"heartbeat"}, journal.WithLogger(quietLogger()))
	watch := &failedRecorder{failures: make(chan *worker.PipelineFailed, 4)}

	eb, wiring, drains, err := bus.NewBuilder(bus.Config{Logger: quietLogger()}).
		Subscribe(w.Subscription()).
		Subscribe(watch.Subscription()).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.StartDrains(ctx, drains)

	sd := worker.NewShutdown()
	defer sd.Trigger()
	for _, wk := range []worker.Worker{w, watch} {
		in, ok := wiring.Take(wk.SubscriberID())
		require.True(t, ok)
		go func(wk worker.Worker) {
			_ = worker.Run(ctx, wk, in, eb, sd.Listen(), worker.WithLogger(quietLogger()))
		}(wk)
	}

	eb.Publish(ctx, &heartbeat{Header: event.NewHeader()})

	select {
	case <-store.attempts:
	case <-time.After(2 * time.Second):
		t.Fatal("journal never attempted the append")
	}

	select {
	case pf := <-watch.failures:
		t.Fatalf("unexpected pipeline failure: %s", pf.Message)
	case <-time.After(50 * time.Millisecond):
	}
}
