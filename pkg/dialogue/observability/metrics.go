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

// MetricsRecorder records dialogue runtime metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordOp records a Start/Advance/Select call with its duration
	// and error status.
	RecordOp(ctx context.Context, op string, duration time.Duration, err error)

	// RecordNodeVisit records one node visit, tagged by node kind.
	RecordNodeVisit(ctx context.Context, kind string)

	// RecordSessionEnd records a session reaching its end.
	RecordSessionEnd(ctx context.Context)

	// RecordSnapshot records a snapshot serialization.
	RecordSnapshot(ctx context.Context, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	opCalls      metric.Int64Counter
	opLatency    metric.Float64Histogram
	opErrors     metric.Int64Counter
	nodeVisits   metric.Int64Counter
	sessionEnds  metric.Int64Counter
	snapshotSize metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("dialogue")

	opCalls, err := meter.Int64Counter("dialogue.session.calls",
		metric.WithDescription("Number of session calls (start/advance/select)"),
	)
	if err != nil {
		return nil, err
	}

	opLatency, err := meter.Float64Histogram("dialogue.session.latency_ms",
		metric.WithDescription("Session call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	opErrors, err := meter.Int64Counter("dialogue.session.errors",
		metric.WithDescription("Number of failed session calls"),
	)
	if err != nil {
		return nil, err
	}

	nodeVisits, err := meter.Int64Counter("dialogue.node.visits",
		metric.WithDescription("Number of node visits"),
	)
	if err != nil {
		return nil, err
	}

	sessionEnds, err := meter.Int64Counter("dialogue.session.ends",
		metric.WithDescription("Number of sessions that reached an end"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("dialogue.snapshot.size_bytes",
		metric.WithDescription("Session snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		opCalls:      opCalls,
		opLatency:    opLatency,
		opErrors:     opErrors,
		nodeVisits:   nodeVisits,
		sessionEnds:  sessionEnds,
		snapshotSize: snapshotSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
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

// RecordOp records a session call.
func (m *otelMetrics) RecordOp(ctx context.Context, op string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("op", op),
	}
	m.opCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.opLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.opErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordNodeVisit records one node visit.
func (m *otelMetrics) RecordNodeVisit(ctx context.Context, kind string) {
	m.nodeVisits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSessionEnd records a session end.
func (m *otelMetrics) RecordSessionEnd(ctx context.Context) {
	m.sessionEnds.Add(ctx, 1)
}

// RecordSnapshot records a snapshot serialization.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes)
}
