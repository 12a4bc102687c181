package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware returns otelgin followed by a handler that records the
// request id and gin errors on the request span. Register after RequestIDMiddleware:
//
//	r.Use(middleware.TracingMiddleware(name)...)
func TracingMiddleware(serviceName string, opts ...otelgin.Option) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName, opts...), spanAnnotator()}
}

// spanAnnotator runs inside otelgin's c.Next, while the request span is still open
func spanAnnotator() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if requestID := c.GetString(requestIDKey); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}

		c.Next()

		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
