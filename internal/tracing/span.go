package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/microburn/microburn"
)

// StartRunSpan starts the root span covering an entire benchmark run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, runID string, unitCount int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "benchmark run")
	span.SetAttributes(
		attribute.String("microburn.run_id", runID),
		attribute.Int("microburn.unit_count", unitCount),
	)
	return ctx, span
}

// StartUnitSpan starts a span covering one unit's prepare/sample/teardown
// cycle.
func StartUnitSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "unit "+name)
	span.SetAttributes(attribute.String("microburn.unit", name))
	return ctx, span
}

// EndUnitSpan attaches a completed unit's statistics and finishes the span.
func EndUnitSpan(span trace.Span, res microburn.UnitResult) {
	span.SetAttributes(
		attribute.Int("microburn.samples", res.Totals.Runs),
		attribute.Float64("microburn.rate_avg", res.Totals.Avg),
		attribute.Float64("microburn.rate_stddev", res.Totals.StdDev),
		attribute.Float64("microburn.latency_p99_ms", res.Latency.P99Ms),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
