package observe

import (
	"context"
	"time"
)

// Instrument wraps an operation with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is propagated into the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Instrument struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrument creates an Instrument from explicit components.
func NewInstrument(tracer Tracer, metrics Metrics, logger Logger) *Instrument {
	if tracer == nil {
		tracer = NewTracer(nil)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Instrument{tracer: tracer, metrics: metrics, logger: logger}
}

// InstrumentFromObserver creates an Instrument from an Observer.
func InstrumentFromObserver(obs Observer) (*Instrument, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrument(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// NopInstrument discards all telemetry.
func NopInstrument() *Instrument {
	return NewInstrument(nil, nil, nil)
}

// Logger returns the instrument's logger.
func (i *Instrument) Logger() Logger {
	return i.logger
}

// Call runs fn inside a span, records its duration, and logs failures.
func (i *Instrument) Call(ctx context.Context, op Op, fn func(context.Context) error) error {
	ctx, span := i.tracer.StartSpan(ctx, op)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	i.tracer.EndSpan(span, err)
	i.metrics.RecordCall(ctx, op, duration, err)

	fields := []Field{F("duration_ms", float64(duration.Milliseconds()))}
	if op.Model != "" {
		fields = append(fields, F("model", op.Model))
	}
	if err != nil {
		fields = append(fields, F("error", err))
		i.logger.With(op).Warn(ctx, "upstream call failed", fields...)
	} else {
		i.logger.With(op).Debug(ctx, "upstream call completed", fields...)
	}
	return err
}

// Outcome records the end of a refresh run.
func (i *Instrument) Outcome(ctx context.Context, op Op, attempts int, ok bool) {
	i.metrics.RecordOutcome(ctx, op, attempts, ok)
}
