package capacity

import (
	"context"
	"time"
)

// Metrics receives capacity engine measurements
type Metrics interface {
	RecordChange(ctx context.Context, action string, change int)
	RecordRejection(ctx context.Context, code string)
	RecordCorrection(ctx context.Context, discrepancy int)
	RecordOverride(ctx context.Context)
	RecordSync(ctx context.Context, duration time.Duration, synced, failed int)
}

type noopMetrics struct{}

func (noopMetrics) RecordChange(context.Context, string, int) {}
func (noopMetrics) RecordRejection(context.Context, string) {}
func (noopMetrics) RecordCorrection(context.Context, int) {}
func (noopMetrics) RecordOverride(context.Context) {}
func (noopMetrics) RecordSync(context.Context, time.Duration, int, int) {}
