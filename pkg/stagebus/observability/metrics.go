package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "stagebus"

// MetricsRecorder records stagebus metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordHandle records one handler invocation with its duration and error status.
	RecordHandle(ctx context.Context, subscriberID, eventType string, duration time.Duration, err error)

	// RecordJournalAppend records a journal write.
	RecordJournalAppend(ctx context.Context, eventType string, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	handled        metric.Int64Counter
	handleLatency  metric.Float64Histogram
	handleErrors   metric.Int64Counter
	journalAppends metric.Int64Counter
	journalErrors  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(meterName)

	handled, err := meter.Int64Counter("stagebus.worker.handled",
		metric.WithDescription("Number of events handled by workers"),
	)
	if err != nil {
		return nil, err
	}

	handleLatency, err := meter.Float64Histogram("stagebus.worker.latency_ms",
		metric.WithDescription("Handler latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handleErrors, err := meter.Int64Counter("stagebus.worker.failures",
		metric.WithDescription("Number of handler failures reported as pipeline.failed"),
	)
	if err != nil {
		return nil, err
	}

	journalAppends, err := meter.Int64Counter("stagebus.journal.appends",
		metric.WithDescription("Number of journal entries written"),
	)
	if err != nil {
		return nil, err
	}

	journalErrors, err := meter.Int64Counter("stagebus.journal.errors",
		metric.WithDescription("Number of failed journal writes"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		handled:        handled,
		handleLatency:  handleLatency,
		handleErrors:   handleErrors,
		journalAppends: journalAppends,
		journalErrors:  journalErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordHandle records a handler invocation.
func (m *otelMetrics) RecordHandle(ctx context.Context, subscriberID, eventType string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("subscriber_id", subscriberID),
		attribute.String("event_type", eventType),
	)

	m.handled.Add(ctx, 1, attrs)
	m.handleLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.handleErrors.Add(ctx, 1, attrs)
	}
}

// RecordJournalAppend records a journal write.
func (m *otelMetrics) RecordJournalAppend(ctx context.Context, eventType string, err error) {
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))
	if err != nil {
		m.journalErrors.Add(ctx, 1, attrs)
		return
	}
	m.journalAppends.Add(ctx, 1, attrs)
}

// BusCounters is the read-only counter view of a bus.
type BusCounters interface {
	Published() uint64
	Unrouted() uint64
	Dropped() uint64
}

// ObserveBus exports a bus's counters as OTel observable counters, read at
// collection time. Unregister the returned registration when the bus is gone.
func ObserveBus(src BusCounters, sessionID string) (metric.Registration, error) {
	meter := otel.Meter(meterName)

	published, err := meter.Int64ObservableCounter("stagebus.bus.published",
		metric.WithDescription("Number of events published"),
	)
	if err != nil {
		return nil, err
	}

	unrouted, err := meter.Int64ObservableCounter("stagebus.bus.unrouted",
		metric.WithDescription("Number of events published with no route"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64ObservableCounter("stagebus.bus.dropped",
		metric.WithDescription("Number of deliveries rejected by queue policies"),
	)
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(attribute.String("session_id", sessionID))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(published, int64(src.Published()), attrs)
		o.ObserveInt64(unrouted, int64(src.Unrouted()), attrs)
		o.ObserveInt64(dropped, int64(src.Dropped()), attrs)
		return nil
	}, published, unrouted, dropped)
}
