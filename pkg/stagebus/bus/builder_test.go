package bus_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
)

func TestBuildValidation(t *testing.T) {
	ok := bus.On("chunk.ready", queue.Latest())

	tests := []struct {
		name    string
		subs    []bus.Subscription
		wantErr error
		wantSub string
		wantTyp event.Type
	}{
		{
			name:    "empty subscriber id",
			subs:    []bus.Subscription{{Inputs: []bus.Input{ok}}},
			wantErr: bus.ErrEmptySubscriber,
		},
		{
			name:    "blank subscriber id",
			subs:    []bus.Subscription{{SubscriberID: "   ", Inputs: []bus.Input{ok}}},
			wantErr: bus.ErrEmptySubscriber,
		},
		{
			name: "duplicate subscriber",
			subs: []bus.Subscription{
				{SubscriberID: "a", Inputs: []bus.Input{ok}},
				{SubscriberID: "a", Inputs: []bus.Input{ok}},
			},
			wantErr: bus.ErrDuplicateSubscriber,
			wantSub: "a",
		},
		{
			name:    "no inputs",
			subs:    []bus.Subscription{{SubscriberID: "a"}},
			wantErr: bus.ErrNoInputs,
			wantSub: "a",
		},
		{
			name:    "empty event type",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{bus.On("", queue.Latest())}}},
			wantErr: bus.ErrEmptyEventType,
			wantSub: "a",
		},
		{
			name:    "blank event type",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{bus.On(" \t", queue.DropOldest(1))}}},
			wantErr: bus.ErrEmptyEventType,
			wantSub: "a",
			wantTyp: " \t",
		},
		{
			name:    "duplicate input",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{ok, bus.On("chunk.ready", queue.DropOldest(1))}}},
			wantErr: bus.ErrDuplicateInput,
			wantSub: "a",
			wantTyp: "chunk.ready",
		},
		{
			name:    "zero capacity fifo",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{bus.On("x", queue.DropOldest(0))}}},
			wantErr: bus.ErrZeroCapacity,
			wantSub: "a",
			wantTyp: "x",
		},
		{
			name:    "zero capacity isolated",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{bus.On("x", queue.Isolated(0))}}},
			wantErr: bus.ErrZeroCapacity,
			wantSub: "a",
			wantTyp: "x",
		},
		{
			name:    "drop newest is rejected",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{bus.On("x", queue.DropNewest(4))}}},
			wantErr: bus.ErrPolicyUnimplemented,
			wantSub: "a",
			wantTyp: "x",
		},
		{
			name:    "unknown policy",
			subs:    []bus.Subscription{{SubscriberID: "a", Inputs: []bus.Input{{Type: "x"}}}},
			wantErr: bus.ErrUnknownPolicy,
			wantSub: "a",
			wantTyp: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bus.NewBuilder(quietConfig())
			for _, s := range tt.subs {
				b.Subscribe(s)
			}
			eb, wiring, drains, err := b.Build()
			require.Error(t, err)
			assert.Nil(t, eb)
			assert.Nil(t, wiring)
			assert.Nil(t, drains)

			assert.ErrorIs(t, err, tt.wantErr)
			var cerr *bus.ConfigError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantSub, cerr.SubscriberID)
			if tt.wantTyp != "" {
				assert.Equal(t, tt.wantTyp, cerr.Type)
			}
		})
	}
}

func TestBuildWithRegistry(t *testing.T) {
	reg := event.NewRegistry()
	reg.MustRegister(&chunkReady{})

	cfg := quietConfig()
	cfg.Registry = reg

	_, _, _, err := bus.NewBuilder(cfg).
		Subscribe(bus.Subscription{SubscriberID: "a", Inputs: []bus.Input{bus.On("chunk.ready", queue.Latest())}}).
		Build()
	require.NoError(t, err)

	_, _, _, err = bus.NewBuilder(cfg).
		Subscribe(bus.Subscription{SubscriberID: "a", Inputs: []bus.Input{bus.On("orphan.event", queue.Latest())}}).
		Build()
	assert.ErrorIs(t, err, bus.ErrUnregisteredType)
	assert.Contains(t, err.Error(), `subscriber "a" input "orphan.event"`)
}

func TestBuildIgnoresCapacityForLatest(t *testing.T) {
	_, _, drains, err := bus.NewBuilder(quietConfig()).
		Subscribe(bus.Subscription{SubscriberID: "a", Inputs: []bus.Input{
			bus.On("chunk.ready", queue.Kind{Policy: queue.PolicyLatest}),
		}}).
		Build()
	require.NoError(t, err)
	assert.Empty(t, drains)
}
