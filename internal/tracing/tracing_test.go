package tracing_test

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/microburn/microburn"
	"github.com/microburn/microburn/internal/config"
	"github.com/microburn/microburn/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func TestInitDisabledByDefault(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	// Disabled tracing hands out a no-op tracer that must not panic.
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
	if span.SpanContext().TraceID().IsValid() {
		t.Error("disabled provider produced a recording span")
	}
}

func TestInitEnabledWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Enabled: true})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
	if span.SpanContext().TraceID().IsValid() {
		t.Error("endpoint-less provider produced a recording span")
	}
}

func TestInitWithEndpoint(t *testing.T) {
	// No collector is reachable in unit tests; Init must still configure
	// the provider without error (export batching fails lazily).
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		ServiceName: "test-service",
		SampleRate:  1.0,
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Shutdown(shutdownCtx)
}

func TestInitHTTPProtocol(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{
		Enabled:  true,
		Endpoint: "localhost:4318",
		Protocol: "http",
		Insecure: true,
	})
	if err != nil {
		t.Fatalf("Init() with http protocol error = %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Shutdown(shutdownCtx)
}

func TestInitUnsupportedProtocol(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Enabled:  true,
		Endpoint: "localhost:4317",
		Protocol: "thrift",
		Insecure: true,
	})
	if err == nil {
		t.Fatal("Init() with unsupported protocol should return error")
	}
}

func TestInitInvalidSampleRate(t *testing.T) {
	for _, rate := range []float64{-0.5, 1.5} {
		_, err := tracing.Init(context.Background(), config.TracingConfig{
			Enabled:    true,
			Endpoint:   "localhost:4317",
			Protocol:   "grpc",
			Insecure:   true,
			SampleRate: rate,
		})
		if err == nil {
			t.Fatalf("Init() with sample_rate=%g should return error", rate)
		}
	}
}

func TestRunAndUnitSpans(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	ctx, runSpan := tracing.StartRunSpan(context.Background(), tracer, "01TESTRUNID", 2)
	_, unitSpan := tracing.StartUnitSpan(ctx, tracer, "alpha")
	tracing.EndUnitSpan(unitSpan, microburn.UnitResult{
		Name:    "alpha",
		Totals:  microburn.Totals{Runs: 5, Avg: 1200, StdDev: 30},
		Latency: microburn.LatencyStats{P99Ms: 1.5},
	})
	tracing.EndSpan(runSpan, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "unit alpha" {
		t.Fatalf("unit span name = %q", spans[0].Name)
	}
	if spans[1].Name != "benchmark run" {
		t.Fatalf("run span name = %q", spans[1].Name)
	}

	var sawRate bool
	for _, attr := range spans[0].Attributes {
		if string(attr.Key) == "microburn.rate_avg" && attr.Value.AsFloat64() == 1200 {
			sawRate = true
		}
	}
	if !sawRate {
		t.Fatal("unit span missing rate attribute")
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "failing")
	tracing.EndSpan(span, context.DeadlineExceeded)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("error not recorded as event")
	}
}
