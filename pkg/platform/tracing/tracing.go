// Package tracing wraps the OpenTelemetry tracer used around application use
// cases. Without an SDK provider installed the global tracer is a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "ecommerce/pkg/domain-errors"
	"ecommerce/pkg/requestcontext"
)

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Start opens a span tagged with the request id when one is present.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on the span, if any, and ends it. Client-side failures keep
// an unset status so they don't show up as server errors.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.code", string(dErrors.CodeOf(err))))
		if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= 500 {
			span.SetStatus(codes.Error, dErrors.Message(err))
		}
	}
	span.End()
}
