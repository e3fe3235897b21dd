package telemetry

import (
	"context"
	"errors"
	"time"

	appcap "github.com/tourops/backend/internal/application/capacity"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// CapacityMetrics records capacity engine activity.
type CapacityMetrics struct {
	changes      *Counter
	units        *Counter
	rejections   *Counter
	corrections  *Counter
	discrepancy  *Histogram
	overrides    *Counter
	syncRuns     *Counter
	syncItems    *Counter
	syncDuration *Histogram
}

// NewCapacityMetrics creates the capacity instruments on meter.
func NewCapacityMetrics(meter metric.Meter) (*CapacityMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &CapacityMetrics{}
	var err error

	if m.changes, err = NewCounter(meter,
		"tourops_capacity_changes_total",
		"Committed booking-driven capacity changes",
		"{changes}"); err != nil {
		return nil, err
	}
	if m.units, err = NewCounter(meter,
		"tourops_capacity_units_total",
		"Travelers moved by committed capacity changes",
		"{travelers}"); err != nil {
		return nil, err
	}
	if m.rejections, err = NewCounter(meter,
		"tourops_capacity_rejections_total",
		"Capacity changes rejected by business rules",
		"{changes}"); err != nil {
		return nil, err
	}
	if m.corrections, err = NewCounter(meter,
		"tourops_capacity_corrections_total",
		"Reconciliations that corrected a drifted capacity",
		"{corrections}"); err != nil {
		return nil, err
	}
	if m.discrepancy, err = NewHistogram(meter, HistogramOpts{
		Name:        "tourops_capacity_discrepancy",
		Description: "Absolute discrepancy found by reconciliation",
		Unit:        "{travelers}",
		Boundaries:  DiscrepancyBuckets,
	}); err != nil {
		return nil, err
	}
	if m.overrides, err = NewCounter(meter,
		"tourops_capacity_overrides_total",
		"Manual capacity overrides applied by operators",
		"{overrides}"); err != nil {
		return nil, err
	}
	if m.syncRuns, err = NewCounter(meter,
		"tourops_capacity_sync_runs_total",
		"Tenant-wide sync runs",
		"{runs}"); err != nil {
		return nil, err
	}
	if m.syncItems, err = NewCounter(meter,
		"tourops_capacity_sync_items_total",
		"Items processed by tenant-wide sync runs",
		"{items}"); err != nil {
		return nil, err
	}
	if m.syncDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "tourops_capacity_sync_duration_seconds",
		Description: "Duration of tenant-wide sync runs",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordChange implements capacity.Metrics
func (m *CapacityMetrics) RecordChange(ctx context.Context, action string, change int) {
	m.changes.Inc(ctx, AttrAction.String(action))
	m.units.Add(ctx, int64(abs(change)), AttrAction.String(action))
}

// RecordRejection implements capacity.Metrics
func (m *CapacityMetrics) RecordRejection(ctx context.Context, code string) {
	m.rejections.Inc(ctx, AttrErrorCode.String(code))
}

// RecordCorrection implements capacity.Metrics
func (m *CapacityMetrics) RecordCorrection(ctx context.Context, discrepancy int) {
	m.corrections.Inc(ctx)
	m.discrepancy.Record(ctx, float64(abs(discrepancy)))
}

// RecordOverride implements capacity.Metrics
func (m *CapacityMetrics) RecordOverride(ctx context.Context) {
	m.overrides.Inc(ctx)
}

// RecordSync implements capacity.Metrics
func (m *CapacityMetrics) RecordSync(ctx context.Context, duration time.Duration, synced, failed int) {
	outcome := "success"
	if failed > 0 {
		outcome = "failure"
	}
	m.syncRuns.Inc(ctx, AttrOutcome.String(outcome))
	m.syncDuration.RecordDuration(ctx, duration, AttrOutcome.String(outcome))
	m.syncItems.Add(ctx, int64(synced), AttrOutcome.String("synced"))
	m.syncItems.Add(ctx, int64(failed), AttrOutcome.String("failed"))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var _ appcap.Metrics = (*CapacityMetrics)(nil)
