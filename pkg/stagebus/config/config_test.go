package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	"github.com/randalmurphal/stagebus/pkg/stagebus/config"
	sberrors "github.com/randalmurphal/stagebus/pkg/stagebus/errors"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
)

const fullYAML = `
session_id: 0b0d7a0e-6c55-4bd4-9a43-5b8f3c1d9e21
strict_routing: true
logging:
  level: debug
  format: json
metrics:
  enabled: true
tracing:
  enabled: true
journal:
  backend: sqlite
  path: run.db
  types: [report.compiled, pipeline.failed]
retry:
  max_attempts: 5
  initial_backoff: 250ms
  max_backoff: 2
  backoff_factor: 1.5
  jitter: 0
subscriptions:
  - subscriber: audio.transcribe
    type: audio.extracted
    policy: fifo_drop_oldest
    capacity: 8
  - subscriber: completion.sink
    type: report.compiled
    policy: isolated
    capacity: 2
`

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, uuid.MustParse("0b0d7a0e-6c55-4bd4-9a43-5b8f3c1d9e21"), cfg.SessionID)
	assert.True(t, cfg.StrictRouting)
	assert.Equal(t, config.LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.True(t, cfg.Metrics)
	assert.True(t, cfg.Tracing)
	assert.Equal(t, config.JournalSQLite, cfg.Journal.Backend)
	assert.Equal(t, "run.db", cfg.Journal.Path)
	assert.Equal(t, []event.Type{"report.compiled", "pipeline.failed"}, cfg.Journal.Types)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, 1.5, cfg.Retry.BackoffFactor)
	assert.Equal(t, float64(0), cfg.Retry.Jitter)

	require.Len(t, cfg.Overrides, 2)
	assert.Equal(t, config.Override{
		Subscriber: "audio.transcribe",
		Type:       "audio.extracted",
		Queue:      queue.DropOldest(8),
	}, cfg.Overrides[0])
	assert.Equal(t, queue.Isolated(2), cfg.Overrides[1].Queue)
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{
		"strict_routing": false,
		"retry": {"max_attempts": 2, "initial_backoff": "1s"},
		"subscriptions": [{"subscriber": "a", "type": "x", "policy": "latest"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, cfg.SessionID)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialBackoff)
	assert.Equal(t, sberrors.DefaultRetry.MaxBackoff, cfg.Retry.MaxBackoff)
	require.Len(t, cfg.Overrides, 1)
	assert.Equal(t, queue.Latest(), cfg.Overrides[0].Queue)
}

func TestDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.JournalNone, cfg.Journal.Backend)
	assert.Equal(t, sberrors.DefaultRetry.MaxAttempts, cfg.Retry.MaxAttempts)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"bad session id", "session_id: nope", config.ErrInvalidSessionID},
		{"unknown journal backend", "journal: {backend: redis}", config.ErrInvalidJournal},
		{"sqlite without path", "journal: {backend: sqlite}", config.ErrInvalidJournal},
		{"override without type", "subscriptions: [{subscriber: a}]", config.ErrInvalidOverride},
		{"override with bad policy", "subscriptions: [{subscriber: a, type: x, policy: lifo}]", config.ErrInvalidOverride},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := config.FromYAML([]byte("logging: [unclosed"))
	assert.Error(t, err)
	_, err = config.FromJSON([]byte("{"))
	assert.Error(t, err)
	_, err = config.Parse([]byte("{}"), "toml")
	assert.ErrorIs(t, err, config.ErrUnsupportedFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "stagebus.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("strict_routing: true\n"), 0o600))
	cfg, err := config.Load(yamlPath)
	require.NoError(t, err)
	assert.True(t, cfg.StrictRouting)

	jsonPath := filepath.Join(dir, "stagebus.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"strict_routing": true}`), 0o600))
	cfg, err = config.Load(jsonPath)
	require.NoError(t, err)
	assert.True(t, cfg.StrictRouting)

	tomlPath := filepath.Join(dir, "stagebus.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o600))
	_, err = config.Load(tomlPath)
	assert.ErrorIs(t, err, config.ErrUnsupportedFormat)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestApply(t *testing.T) {
	subs := []bus.Subscription{
		{SubscriberID: "audio.transcribe", Inputs: []bus.Input{bus.On("audio.extracted", queue.DropOldest(4))}},
		{SubscriberID: "completion.sink", Inputs: []bus.Input{
			bus.On("report.compiled", queue.Isolated(4)),
			bus.On("pipeline.failed", queue.DropOldest(4)),
		}},
	}

	cfg := config.Default()
	cfg.Overrides = []config.Override{
		{Subscriber: "completion.sink", Type: "pipeline.failed", Queue: queue.DropOldest(16)},
	}

	got, err := cfg.Apply(subs)
	require.NoError(t, err)
	assert.Equal(t, queue.DropOldest(16), got[1].Inputs[1].Queue)
	assert.Equal(t, queue.DropOldest(4), subs[1].Inputs[1].Queue, "input slice is not modified")
	assert.Equal(t, queue.DropOldest(4), got[0].Inputs[0].Queue)

	cfg.Overrides = []config.Override{{Subscriber: "ghost", Type: "x", Queue: queue.Latest()}}
	_, err = cfg.Apply(subs)
	assert.ErrorIs(t, err, config.ErrUnknownOverride)

	cfg.Overrides = []config.Override{{Subscriber: "audio.transcribe", Type: "video.downloaded", Queue: queue.Latest()}}
	_, err = cfg.Apply(subs)
	assert.ErrorIs(t, err, config.ErrUnknownOverride)
}

func TestBusConfigAndLogger(t *testing.T) {
	cfg, err := config.FromYAML([]byte(fullYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), `"msg":"visible"`)

	reg := event.NewRegistry()
	bc := cfg.BusConfig(logger, reg)
	assert.Equal(t, cfg.SessionID, bc.SessionID)
	assert.True(t, bc.StrictRouting)
	assert.Same(t, reg, bc.Registry)
	assert.Same(t, logger, bc.Logger)
}
