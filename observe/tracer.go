package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Op describes one instrumented operation: an upstream call, a refresh, a
// proxied request.
type Op struct {
	Component string // weather, caption, assets, proxy, diary
	Name      string // call, refresh, forward
	Model     string // upstream model identifier, if any
}

// SpanName returns the deterministic span name for this operation.
// Format: relay.<component>.<name> or relay.<component>
func (o Op) SpanName() string {
	if o.Name != "" {
		return "relay." + o.Component + "." + o.Name
	}
	return "relay." + o.Component
}

func (o Op) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("relay.component", o.Component),
	}
	if o.Name != "" {
		attrs = append(attrs, attribute.String("relay.op", o.Name))
	}
	if o.Model != "" {
		attrs = append(attrs, attribute.String("relay.model", o.Model))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	StartSpan(ctx context.Context, op Op) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		t = tracenoop.NewTracerProvider().Tracer("noop")
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Op) (context.Context, trace.Span) {
	attrs := append(op.attributes(), attribute.Bool("relay.error", false))
	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("relay.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
