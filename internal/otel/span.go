// Package otel holds the span attribute keys and helpers shared by the sync
// coordinator, the sync manager, the reconciler and the upstream sources.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. A root span carrying AttrSyncType is always sampled.
const (
	AttrSyncType    = attribute.Key("sync.type")
	AttrSyncRunID   = attribute.Key("sync.run_id")
	AttrSourceURL   = attribute.Key("source.url")
	AttrRegionName  = attribute.Key("region.name")
	AttrResultCount = attribute.Key("result.count")
	AttrHasUpdated  = attribute.Key("sync.has_updated")
)

// StartSpan starts a span on tracer. With a nil tracer it returns ctx and
// whatever span ctx already carries.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError adds err as a span event and marks the span failed. The status
// text stays generic since errors here embed upstream URLs and store DSNs.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
