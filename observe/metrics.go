package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records upstream call and refresh outcome metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one upstream call attempt.
	RecordCall(ctx context.Context, op Op, duration time.Duration, err error)

	// RecordOutcome records how a refresh ended and how many attempts it took.
	RecordOutcome(ctx context.Context, op Op, attempts int, ok bool)
}

type metricsImpl struct {
	calls    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
	outcomes metric.Int64Counter
	attempts metric.Int64Histogram
}

// NewMetrics creates the relay instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	calls, err := meter.Int64Counter(
		"upstream.calls",
		metric.WithDescription("Upstream chat-completion calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"upstream.failures",
		metric.WithDescription("Upstream calls that failed in transport, status or validation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"upstream.duration_ms",
		metric.WithDescription("Upstream call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	outcomes, err := meter.Int64Counter(
		"refresh.outcomes",
		metric.WithDescription("Refresh runs by component and result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Histogram(
		"refresh.attempts",
		metric.WithDescription("Attempts used per refresh run"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		calls:    calls,
		failures: failures,
		duration: duration,
		outcomes: outcomes,
		attempts: attempts,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, op Op, duration time.Duration, err error) {
	opt := metric.WithAttributes(op.attributes()...)

	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.failures.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordOutcome(ctx context.Context, op Op, attempts int, ok bool) {
	attrs := append(op.attributes(), attribute.Bool("relay.ok", ok))
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.attempts.Record(ctx, int64(attempts), metric.WithAttributes(op.attributes()...))
}

type noopMetrics struct{}

func (noopMetrics) RecordCall(context.Context, Op, time.Duration, error) {}
func (noopMetrics) RecordOutcome(context.Context, Op, int, bool)         {}
