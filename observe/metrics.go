package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records request lifecycle and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCompletion records a request reaching its terminal outcome.
	// The outcome attribute is one of "success", "failure", "cancellation".
	RecordCompletion(ctx context.Context, meta RequestMeta, duration time.Duration, outcome string)

	// RecordDuplicate records a discarded duplicate transport response.
	RecordDuplicate(ctx context.Context, meta RequestMeta)

	// RecordCacheRead records a cache lookup and whether it hit.
	RecordCacheRead(ctx context.Context, pool string, hit bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	completions  metric.Int64Counter
	duplicates   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheReads   metric.Int64Counter
}

// NewMetrics creates a Metrics instance recording to the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	completions, err := meter.Int64Counter(
		"request.completions.total",
		metric.WithDescription("Total number of request terminal outcomes"),
		metric.WithUnit("{completion}"),
	)
	if err != nil {
		return nil, err
	}

	duplicates, err := meter.Int64Counter(
		"request.duplicate_responses.total",
		metric.WithDescription("Total number of discarded duplicate transport responses"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"request.duration_ms",
		metric.WithDescription("Request duration from start to terminal outcome in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheReads, err := meter.Int64Counter(
		"cache.reads.total",
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		completions:  completions,
		duplicates:   duplicates,
		durationHist: durationHist,
		cacheReads:   cacheReads,
	}, nil
}

// RecordCompletion records metrics for a terminal outcome.
func (m *metricsImpl) RecordCompletion(ctx context.Context, meta RequestMeta, duration time.Duration, outcome string) {
	opt := metric.WithAttributes(
		attribute.String("outcome", outcome),
	)

	m.completions.Add(ctx, 1, opt)

	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordDuplicate records a discarded duplicate transport response.
func (m *metricsImpl) RecordDuplicate(ctx context.Context, meta RequestMeta) {
	m.duplicates.Add(ctx, 1)
}

// RecordCacheRead records a cache lookup.
func (m *metricsImpl) RecordCacheRead(ctx context.Context, pool string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheReads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.pool", pool),
		attribute.String("result", result),
	))
}

// NewNopMetrics returns a Metrics implementation that records nothing.
func NewNopMetrics() Metrics {
	return &noopMetrics{}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCompletion(ctx context.Context, meta RequestMeta, duration time.Duration, outcome string) {
}

func (m *noopMetrics) RecordDuplicate(ctx context.Context, meta RequestMeta) {}

func (m *noopMetrics) RecordCacheRead(ctx context.Context, pool string, hit bool) {}
