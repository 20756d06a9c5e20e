// Package tracer is a thin tracing seam for the listing proxy. Service and
// vendor code depend on the Tracer interface; production wires the
// OpenTelemetry adapter and tests use the no-op tracer.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start opens a span; the returned context carries it to child calls.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanVendorPage, tracer.Int("page", 2))
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records the value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanSearch     = "listing.search"
	SpanGetListing = "listing.get"
	SpanVendorPage = "listing.vendor.page"
	SpanVendorAd   = "listing.vendor.ad"
)

// Attribute keys.
const (
	AttrPage          = "vendor.page"
	AttrPageSize      = "vendor.page_size"
	AttrAttempt       = "vendor.attempt"
	AttrStatusCode    = "http.status_code"
	AttrRecords       = "vendor.records"
	AttrReported      = "vendor.total"
	AttrShape         = "vendor.shape"
	AttrFailurePolicy = "listing.failure_policy"
	AttrPagesFetched  = "listing.pages_fetched"
	AttrPagesFailed   = "listing.pages_failed"
	AttrErrorCategory = "vendor.error_category"
)

// Event names.
const (
	EventRetry       = "vendor.retry"
	EventPageSkipped = "listing.page_skipped"
)
