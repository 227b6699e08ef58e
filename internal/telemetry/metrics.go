package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// RegionMetricsMeterName is the name used for the region metrics meter
	RegionMetricsMeterName = "github.com/healthstats-bd/healthstats-sync/regions"

	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/healthstats-bd/healthstats-sync/sync"
)

// RegionMetrics holds the OpenTelemetry instruments for reconciled regions
type RegionMetrics struct {
	regionsReconciled metric.Int64Counter
	regionsTotal      metric.Int64Gauge
}

// NewRegionMetrics creates a new RegionMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewRegionMetrics(provider metric.MeterProvider) (*RegionMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegionMetricsMeterName)

	regionsReconciled, err := meter.Int64Counter(
		"hss_regions_reconciled_total",
		metric.WithDescription("Number of region rows reconciled, by outcome"),
		metric.WithUnit("{region}"),
	)
	if err != nil {
		return nil, err
	}

	regionsTotal, err := meter.Int64Gauge(
		"hss_regions",
		metric.WithDescription("Number of regions in the last district report"),
		metric.WithUnit("{region}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegionMetrics{
		regionsReconciled: regionsReconciled,
		regionsTotal:      regionsTotal,
	}, nil
}

// RecordReconciled adds count rows that took the given outcome
// (created, changed, collapsed, unchanged)
func (m *RegionMetrics) RecordReconciled(ctx context.Context, outcome string, count int) {
	if m == nil || m.regionsReconciled == nil || count <= 0 {
		return
	}

	m.regionsReconciled.Add(ctx, int64(count), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordRegionsTotal records the number of regions in the last report
func (m *RegionMetrics) RecordRegionsTotal(ctx context.Context, count int64) {
	if m == nil || m.regionsTotal == nil {
		return
	}

	m.regionsTotal.Record(ctx, count)
}

// SyncMetrics holds the OpenTelemetry instruments for sync operation metrics
type SyncMetrics struct {
	syncDuration metric.Float64Histogram
	syncSkipped  metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"hss_sync_duration_seconds",
		metric.WithDescription("Duration of sync operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	syncSkipped, err := meter.Int64Counter(
		"hss_sync_skipped_total",
		metric.WithDescription("Number of sync attempts skipped because one was already running"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration: syncDuration,
		syncSkipped:  syncSkipped,
	}, nil
}

// RecordSyncDuration records the duration of a sync operation of the given kind
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, syncType string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("sync_type", syncType),
		attribute.Bool("success", success),
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSyncSkipped counts an attempt that found a sync of the same kind running
func (m *SyncMetrics) RecordSyncSkipped(ctx context.Context, syncType string) {
	if m == nil || m.syncSkipped == nil {
		return
	}

	m.syncSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("sync_type", syncType)))
}
