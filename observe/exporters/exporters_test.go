package exporters

import (
	"context"
	"strings"
	"testing"
)

func TestNewTracingExporter_KnownNames(t *testing.T) {
	for _, name := range []string{"stdout", "none", ""} {
		t.Run(name, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), name)
			if err != nil {
				t.Fatalf("NewTracingExporter(%q) error = %v", name, err)
			}
			if exp == nil {
				t.Fatal("expected non-nil exporter")
			}
		})
	}
}

func TestNewTracingExporter_UnknownName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), "jaeger")
	if err == nil || !strings.Contains(err.Error(), "unknown exporter") {
		t.Errorf("error = %v, want unknown exporter", err)
	}
}

func TestNewTracingExporter_OtlpNeedsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), "otlp")
	if err == nil || !strings.Contains(err.Error(), "endpoint") {
		t.Errorf("error = %v, want endpoint not configured", err)
	}
}

func TestNewTracingExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("NewTracingExporter(otlp) error = %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
}

func TestNewMetricsReader_KnownNames(t *testing.T) {
	for _, name := range []string{"stdout", "prometheus", "none", ""} {
		t.Run(name, func(t *testing.T) {
			reader, err := NewMetricsReader(context.Background(), name)
			if err != nil {
				t.Fatalf("NewMetricsReader(%q) error = %v", name, err)
			}
			if reader == nil {
				t.Fatal("expected non-nil reader")
			}
		})
	}
}

func TestNewMetricsReader_OtlpNeedsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewMetricsReader(context.Background(), "otlp"); err == nil {
		t.Fatal("expected error when OTLP metrics endpoint is not configured")
	}
}

func TestIsExporterName(t *testing.T) {
	if !IsTracingExporter("otlp") || IsTracingExporter("prometheus") {
		t.Error("IsTracingExporter accepted or rejected the wrong names")
	}
	if !IsMetricsExporter("prometheus") || IsMetricsExporter("jaeger") {
		t.Error("IsMetricsExporter accepted or rejected the wrong names")
	}
}
