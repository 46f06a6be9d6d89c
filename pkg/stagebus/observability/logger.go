// Package observability provides structured logging, metrics and tracing
// for stagebus.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// NewLogger builds a logger from configuration strings.
// level is one of debug, info, warn, error (default info); format is json
// or text (default text).
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// EnrichLogger adds bus context to a logger.
// Returns a new logger with session_id and subscriber_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, sessionID, "audio.transcribe")
//	enriched.Info("doing work") // includes session_id, subscriber_id
func EnrichLogger(logger *slog.Logger, sessionID, subscriberID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("subscriber_id", subscriberID),
	)
}

// LogBusBuilt logs a successful bus build.
func LogBusBuilt(logger *slog.Logger, sessionID string, subscribers, routes int, strict bool) {
	if logger == nil {
		return
	}
	logger.Info("event bus built",
		slog.String("session_id", sessionID),
		slog.Int("subscribers", subscribers),
		slog.Int("routes", routes),
		slog.Bool("strict_routing", strict),
	)
}

// LogUnrouted logs an event published with no subscription for its type.
func LogUnrouted(logger *slog.Logger, eventType string, seq uint64) {
	if logger == nil {
		return
	}
	logger.Warn("event has no route",
		slog.String("event_type", eventType),
		slog.Uint64("seq", seq),
	)
}

// LogDrop logs a delivery rejected by a subscription's queue policy.
func LogDrop(logger *slog.Logger, subscriberID, eventType string, seq uint64) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("subscriber_id", subscriberID),
		slog.String("event_type", eventType),
		slog.Uint64("seq", seq),
	)
}

// LogWorkerStart logs a worker entering its run loop.
func LogWorkerStart(logger *slog.Logger, subscriberID string, inputs int) {
	if logger == nil {
		return
	}
	logger.Info("worker starting",
		slog.String("subscriber_id", subscriberID),
		slog.Int("inputs", inputs),
	)
}

// LogWorkerStop logs a worker leaving its run loop.
func LogWorkerStop(logger *slog.Logger, subscriberID, reason string, handled, failed uint64) {
	if logger == nil {
		return
	}
	logger.Info("worker stopped",
		slog.String("subscriber_id", subscriberID),
		slog.String("reason", reason),
		slog.Uint64("handled", handled),
		slog.Uint64("failed", failed),
	)
}

// LogHandleComplete logs a successfully handled event.
func LogHandleComplete(logger *slog.Logger, subscriberID, eventType string, seq uint64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event handled",
		slog.String("subscriber_id", subscriberID),
		slog.String("event_type", eventType),
		slog.Uint64("seq", seq),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHandleError logs a handler failure. The run loop keeps going.
func LogHandleError(logger *slog.Logger, subscriberID, eventType string, seq uint64, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("subscriber_id", subscriberID),
		slog.String("event_type", eventType),
		slog.Uint64("seq", seq),
		slog.String("error", err.Error()),
	)
}

// LogRetry logs a transient collaborator failure that will be retried.
func LogRetry(logger *slog.Logger, op string, attempt int, err error, wait time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("retrying collaborator call",
		slog.String("operation", op),
		slog.Int("attempt", attempt),
		slog.Duration("wait", wait),
		slog.String("error", err.Error()),
	)
}

// LogJournalError logs a journal write failure (non-fatal).
func LogJournalError(logger *slog.Logger, eventType string, seq uint64, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal append failed",
		slog.String("event_type", eventType),
		slog.Uint64("seq", seq),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
