package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPClientConfig holds configuration for an instrumented HTTP client
type HTTPClientConfig struct {
	ServiceName string        // Name of the external service (e.g., "catalog")
	Timeout     time.Duration // Request timeout
}

// NewInstrumentedHTTPClient creates an HTTP client with automatic tracing
func NewInstrumentedHTTPClient(cfg HTTPClientConfig) *http.Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return fmt.Sprintf("%s %s", cfg.ServiceName, r.Method)
			}),
		),
	}
}

// ExternalCallAttrs holds attributes for external service calls
type ExternalCallAttrs struct {
	Service    string // Service name (catalog)
	Operation  string // Operation being performed
	ResourceID string // ID of resource being operated on (optional)
	Page       int
}

// TraceExternalCall creates a span for an external service call with standard attributes
func TraceExternalCall(ctx context.Context, attrs ExternalCallAttrs) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("external-api").Start(ctx, attrs.Service+"."+attrs.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", attrs.Service),
			attribute.String("external.operation", attrs.Operation),
		),
	)

	if attrs.ResourceID != "" {
		span.SetAttributes(attribute.String("external.resource_id", attrs.ResourceID))
	}
	if attrs.Page > 0 {
		span.SetAttributes(attribute.Int("external.page", attrs.Page))
	}

	return ctx, span
}

// RecordExternalCallError records error details in a span
func RecordExternalCallError(span trace.Span, err error, statusCode int) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if statusCode >= 500 || statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests {
			span.SetAttributes(attribute.Bool("external.error.retryable", true))
		}
	}
}

// RecordExternalCallSuccess records success in a span
func RecordExternalCallSuccess(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	span.SetStatus(codes.Ok, "")
}
