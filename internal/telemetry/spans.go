package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartEngineSpan opens an internal span for a feed engine operation
// (e.g. "throttle.should_show", "similar.rank")
func StartEngineSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("feed-engine").Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// MarkDegraded flags a span whose operation fell back to a conservative default
func MarkDegraded(span trace.Span, reason string, err error) {
	span.SetAttributes(
		attribute.Bool("feed.degraded", true),
		attribute.String("feed.degraded_reason", reason),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
	}
}
