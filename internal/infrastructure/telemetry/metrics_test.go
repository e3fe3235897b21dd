package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newManualMetrics(t *testing.T) (*CapacityMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewCapacityMetrics(provider.Meter("capacity-test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum, got %T", data)

	var total int64
	for _, dp := range sum.DataPoints {
		if attr.Key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    60 * time.Second,
		ServiceName:       "test-service",
	}

	mp, err := NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, cfg, mp.GetConfig())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewCapacityMetrics_NilMeter(t *testing.T) {
	m, err := NewCapacityMetrics(nil)

	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Nil(t, m)
}

func TestCapacityMetrics_RecordChange(t *testing.T) {
	m, reader := newManualMetrics(t)
	ctx := context.Background()

	m.RecordChange(ctx, "reserve", -3)
	m.RecordChange(ctx, "reserve", -2)
	m.RecordChange(ctx, "cancel", 4)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, data["tourops_capacity_changes_total"], AttrAction.String("reserve")))
	assert.Equal(t, int64(1), sumFor(t, data["tourops_capacity_changes_total"], AttrAction.String("cancel")))
	assert.Equal(t, int64(5), sumFor(t, data["tourops_capacity_units_total"], AttrAction.String("reserve")))
	assert.Equal(t, int64(4), sumFor(t, data["tourops_capacity_units_total"], AttrAction.String("cancel")))
}

func TestCapacityMetrics_RejectionsAndOverrides(t *testing.T) {
	m, reader := newManualMetrics(t)
	ctx := context.Background()

	m.RecordRejection(ctx, "INSUFFICIENT_CAPACITY")
	m.RecordRejection(ctx, "INSUFFICIENT_CAPACITY")
	m.RecordRejection(ctx, "INVALID_ACTION")
	m.RecordOverride(ctx)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, data["tourops_capacity_rejections_total"], AttrErrorCode.String("INSUFFICIENT_CAPACITY")))
	assert.Equal(t, int64(1), sumFor(t, data["tourops_capacity_rejections_total"], AttrErrorCode.String("INVALID_ACTION")))
	assert.Equal(t, int64(1), sumFor(t, data["tourops_capacity_overrides_total"], attribute.KeyValue{}))
}

func TestCapacityMetrics_RecordCorrection(t *testing.T) {
	m, reader := newManualMetrics(t)
	ctx := context.Background()

	m.RecordCorrection(ctx, -7)
	m.RecordCorrection(ctx, 2)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, data["tourops_capacity_corrections_total"], attribute.KeyValue{}))

	hist, ok := data["tourops_capacity_discrepancy"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 9.0, hist.DataPoints[0].Sum, 0.0001)
}

func TestCapacityMetrics_RecordSync(t *testing.T) {
	m, reader := newManualMetrics(t)
	ctx := context.Background()

	m.RecordSync(ctx, 120*time.Millisecond, 10, 0)
	m.RecordSync(ctx, 2*time.Second, 8, 2)

	data := collect(t, reader)
	runs := data["tourops_capacity_sync_runs_total"]
	assert.Equal(t, int64(1), sumFor(t, runs, AttrOutcome.String("success")))
	assert.Equal(t, int64(1), sumFor(t, runs, AttrOutcome.String("failure")))

	items := data["tourops_capacity_sync_items_total"]
	assert.Equal(t, int64(18), sumFor(t, items, AttrOutcome.String("synced")))
	assert.Equal(t, int64(2), sumFor(t, items, AttrOutcome.String("failed")))

	hist, ok := data["tourops_capacity_sync_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}
