package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/tigerroll/nameforge/pkg/batch/adapter/storage")

// StartSpan starts a span for a storage operation against bucket/key.
// Remote adapters wrap each call with it; with no tracer provider installed the span is a no-op.
func StartSpan(ctx context.Context, op, storageType, bucket, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "storage."+op,
		trace.WithAttributes(
			attribute.String("storage.type", storageType),
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
}

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
