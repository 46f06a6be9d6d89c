package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordHandle does nothing.
func (NoopMetrics) RecordHandle(_ context.Context, _, _ string, _ time.Duration, _ error) {}

// RecordJournalAppend does nothing.
func (NoopMetrics) RecordJournalAppend(_ context.Context, _ string, _ error) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartHandleSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartHandleSpan(ctx context.Context, _, _ string, _ uint64) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

