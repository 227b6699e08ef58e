package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// gatherFamilies indexes the registry output by metric family name
func gatherFamilies(t *testing.T, registry *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCreateMetricReader_ExporterSwitch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exporter string
		check    func(t *testing.T, reader sdkmetric.Reader)
	}{
		{
			name:     "prometheus exporter is a pull reader",
			exporter: ExporterPrometheus,
			check: func(t *testing.T, reader sdkmetric.Reader) {
				_, ok := reader.(*otelprom.Exporter)
				assert.True(t, ok, "expected Prometheus exporter, got %T", reader)
			},
		},
		{
			name:     "otlp exporter pushes periodically",
			exporter: ExporterOTLP,
			check: func(t *testing.T, reader sdkmetric.Reader) {
				_, ok := reader.(*sdkmetric.PeriodicReader)
				assert.True(t, ok, "expected periodic reader, got %T", reader)
			},
		},
		{
			name:     "unset exporter defaults to otlp with a custom interval",
			exporter: "",
			check: func(t *testing.T, reader sdkmetric.Reader) {
				_, ok := reader.(*sdkmetric.PeriodicReader)
				assert.True(t, ok, "expected periodic reader, got %T", reader)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reader, err := createMetricReader(context.Background(), &meterProviderConfig{
				metricsConfig: &MetricsConfig{Enabled: true, Exporter: tt.exporter, Interval: "20m"},
				endpoint:      DefaultEndpoint,
				insecure:      true,
				registerer:    prometheus.NewRegistry(),
			})
			require.NoError(t, err)
			t.Cleanup(func() { _ = reader.Shutdown(context.Background()) })
			tt.check(t, reader)
		})
	}
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	t.Parallel()

	for _, mc := range []*MetricsConfig{nil, {Enabled: false, Exporter: ExporterPrometheus}} {
		mp, err := NewMeterProvider(context.Background(), WithMetricsConfig(mc))
		require.NoError(t, err)
		_, ok := mp.(noop.MeterProvider)
		assert.True(t, ok, "expected no-op meter provider")
	}
}

func TestNewMeterProvider_PrometheusExportsSyncInstruments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := prometheus.NewRegistry()

	mp, err := NewMeterProvider(ctx,
		WithMeterServiceVersion("v1.4.0"),
		WithMetricsConfig(&MetricsConfig{Enabled: true, Exporter: ExporterPrometheus}),
		WithPrometheusRegisterer(registry),
	)
	require.NoError(t, err)
	sdkMP, ok := mp.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	t.Cleanup(func() { _ = sdkMP.Shutdown(ctx) })

	syncMetrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)
	regionMetrics, err := NewRegionMetrics(mp)
	require.NoError(t, err)

	syncMetrics.RecordSyncDuration(ctx, "district", 3*time.Second, true)
	syncMetrics.RecordSyncDuration(ctx, "stats", 200*time.Millisecond, false)
	syncMetrics.RecordSyncSkipped(ctx, "stats")
	regionMetrics.RecordReconciled(ctx, "changed", 4)
	regionMetrics.RecordReconciled(ctx, "collapsed", 1)
	regionMetrics.RecordRegionsTotal(ctx, 64)

	families := gatherFamilies(t, registry)

	duration, ok := families["hss_sync_duration_seconds"]
	require.True(t, ok, "missing sync duration histogram")
	require.Len(t, duration.GetMetric(), 2)
	for _, m := range duration.GetMetric() {
		switch labelValue(m, "sync_type") {
		case "district":
			assert.Equal(t, "true", labelValue(m, "success"))
			assert.InDelta(t, 3.0, m.GetHistogram().GetSampleSum(), 0.001)
		case "stats":
			assert.Equal(t, "false", labelValue(m, "success"))
			assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
		default:
			t.Errorf("unexpected sync_type %q", labelValue(m, "sync_type"))
		}
	}

	skipped, ok := families["hss_sync_skipped_total"]
	require.True(t, ok, "missing skipped counter")
	require.Len(t, skipped.GetMetric(), 1)
	assert.Equal(t, "stats", labelValue(skipped.GetMetric()[0], "sync_type"))
	assert.Equal(t, 1.0, skipped.GetMetric()[0].GetCounter().GetValue())

	reconciled, ok := families["hss_regions_reconciled_total"]
	require.True(t, ok, "missing reconciled counter")
	byOutcome := map[string]float64{}
	for _, m := range reconciled.GetMetric() {
		byOutcome[labelValue(m, "outcome")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"changed": 4, "collapsed": 1}, byOutcome)

	var regionsGauge *dto.MetricFamily
	for name, family := range families {
		if strings.HasPrefix(name, "hss_regions") && family.GetType() == dto.MetricType_GAUGE {
			regionsGauge = family
		}
	}
	require.NotNil(t, regionsGauge, "missing regions gauge")
	assert.Equal(t, 64.0, regionsGauge.GetMetric()[0].GetGauge().GetValue())

	target, ok := families["target_info"]
	require.True(t, ok, "resource is exported as target_info")
	assert.Equal(t, ServiceNamespace, labelValue(target.GetMetric()[0], "service_namespace"))
	assert.Equal(t, "v1.4.0", labelValue(target.GetMetric()[0], "service_version"))
}
