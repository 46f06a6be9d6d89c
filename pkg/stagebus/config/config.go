package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/stagebus/pkg/stagebus/bus"
	sberrors "github.com/randalmurphal/stagebus/pkg/stagebus/errors"
	"github.com/randalmurphal/stagebus/pkg/stagebus/event"
	"github.com/randalmurphal/stagebus/pkg/stagebus/observability"
	"github.com/randalmurphal/stagebus/pkg/stagebus/queue"
)

// Journal backends.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalSQLite = "sqlite"
)

// Sentinel errors for configuration.
var (
	// ErrInvalidSessionID indicates session_id is not a UUID.
	ErrInvalidSessionID = errors.New("invalid session_id")

	// ErrInvalidJournal indicates an unusable journal section.
	ErrInvalidJournal = errors.New("invalid journal config")

	// ErrInvalidOverride indicates a malformed subscription override.
	ErrInvalidOverride = errors.New("invalid subscription override")

	// ErrUnknownOverride indicates an override naming a subscriber or input
	// that does not exist.
	ErrUnknownOverride = errors.New("override matches no subscription input")
)

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// JournalConfig selects where outcome events are recorded.
type JournalConfig struct {
	Backend string // none, memory, sqlite
	Path    string // sqlite database file
	Types   []event.Type
}

// Override replaces the queue policy of one subscription input.
type Override struct {
	Subscriber string
	Type       event.Type
	Queue      queue.Kind
}

// Config is the typed stagebus configuration.
type Config struct {
	SessionID     uuid.UUID // zero means random per bus
	StrictRouting bool
	Logging       LoggingConfig
	Metrics       bool
	Tracing       bool
	Journal       JournalConfig
	Retry         sberrors.RetryConfig
	Overrides     []Override
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Journal: JournalConfig{Backend: JournalNone},
		Retry:   sberrors.DefaultRetry,
	}
}

// Decode builds a Config from loosely typed values, starting from Default.
//
// Recognized keys:
//
//	session_id: <uuid>
//	strict_routing: <bool>
//	logging: {level: <string>, format: <string>}
//	metrics: {enabled: <bool>}
//	tracing: {enabled: <bool>}
//	journal: {backend: none|memory|sqlite, path: <string>, types: [<tag>...]}
//	retry: {max_attempts, initial_backoff, max_backoff, backoff_factor, jitter}
//	subscriptions: [{subscriber, type, policy, capacity}...]
func Decode(v Values) (Config, error) {
	cfg := Default()

	if s := v.String("session_id", ""); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
		}
		cfg.SessionID = id
	}
	cfg.StrictRouting = v.Bool("strict_routing", false)

	logging := v.Section("logging")
	cfg.Logging.Level = logging.String("level", cfg.Logging.Level)
	cfg.Logging.Format = logging.String("format", cfg.Logging.Format)

	cfg.Metrics = v.Section("metrics").Bool("enabled", false)
	cfg.Tracing = v.Section("tracing").Bool("enabled", false)

	journal := v.Section("journal")
	cfg.Journal.Backend = journal.String("backend", cfg.Journal.Backend)
	cfg.Journal.Path = journal.String("path", "")
	for _, t := range journal.StringSlice("types", nil) {
		cfg.Journal.Types = append(cfg.Journal.Types, event.Type(t))
	}
	if err := cfg.Journal.validate(); err != nil {
		return Config{}, err
	}

	retry := v.Section("retry")
	cfg.Retry = sberrors.NewRetryConfig(
		sberrors.WithMaxAttempts(retry.Int("max_attempts", cfg.Retry.MaxAttempts)),
		sberrors.WithInitialBackoff(retry.Duration("initial_backoff", cfg.Retry.InitialBackoff)),
		sberrors.WithMaxBackoff(retry.Duration("max_backoff", cfg.Retry.MaxBackoff)),
		sberrors.WithBackoffFactor(retry.Float("backoff_factor", cfg.Retry.BackoffFactor)),
		sberrors.WithJitter(retry.Float("jitter", cfg.Retry.Jitter)),
	)

	for i, item := range v.List("subscriptions") {
		o, err := decodeOverride(item)
		if err != nil {
			return Config{}, fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
		cfg.Overrides = append(cfg.Overrides, o)
	}

	return cfg, nil
}

func (j JournalConfig) validate() error {
	switch j.Backend {
	case JournalNone, JournalMemory:
		return nil
	case JournalSQLite:
		if j.Path == "" {
			return fmt.Errorf("%w: sqlite backend requires a path", ErrInvalidJournal)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidJournal, j.Backend)
	}
}

func decodeOverride(v Values) (Override, error) {
	o := Override{
		Subscriber: v.String("subscriber", ""),
		Type:       event.Type(v.String("type", "")),
	}
	if o.Subscriber == "" || o.Type == "" {
		return Override{}, fmt.Errorf("%w: subscriber and type are required", ErrInvalidOverride)
	}

	kind, err := queue.ParseKind(v.String("policy", ""), v.Int("capacity", 0))
	if err != nil {
		return Override{}, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	o.Queue = kind
	return o, nil
}

// Logger builds the configured logger writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	return observability.NewLogger(w, c.Logging.Level, c.Logging.Format)
}

// BusConfig returns the bus settings this configuration describes.
func (c Config) BusConfig(logger *slog.Logger, registry *event.Registry) bus.Config {
	return bus.Config{
		SessionID:     c.SessionID,
		StrictRouting: c.StrictRouting,
		Registry:      registry,
		Logger:        logger,
	}
}

// Apply returns a copy of subs with every override applied. An override
// that matches no declared input is an error; overrides cannot add inputs.
func (c Config) Apply(subs []bus.Subscription) ([]bus.Subscription, error) {
	out := make([]bus.Subscription, len(subs))
	index := make(map[string]int, len(subs))
	for i, s := range subs {
		out[i] = bus.Subscription{
			SubscriberID: s.SubscriberID,
			Inputs:       append([]bus.Input(nil), s.Inputs...),
		}
		index[s.SubscriberID] = i
	}

	for _, o := range c.Overrides {
		i, ok := index[o.Subscriber]
		if !ok {
			return nil, fmt.Errorf("%w: subscriber %q", ErrUnknownOverride, o.Subscriber)
		}
		matched := false
		for j := range out[i].Inputs {
			if out[i].Inputs[j].Type == o.Type {
				out[i].Inputs[j].Queue = o.Queue
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: subscriber %q input %q", ErrUnknownOverride, o.Subscriber, o.Type)
		}
	}
	return out, nil
}
