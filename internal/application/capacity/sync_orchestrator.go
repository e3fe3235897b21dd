package capacity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SyncStatistics are process-wide counters of orchestrated sync runs.
// They reset at process start.
type SyncStatistics struct {
	TotalSyncs        int64         `json:"total_syncs"`
	SuccessfulSyncs   int64         `json:"successful_syncs"`
	FailedSyncs       int64         `json:"failed_syncs"`
	ConflictsResolved int64         `json:"conflicts_resolved"`
	LastSyncAt        *time.Time    `json:"last_sync_at,omitempty"`
	LastDuration      time.Duration `json:"last_duration"`
	InProgress        bool          `json:"in_progress"`
}

type syncStats struct {
	mu         sync.Mutex
	running    int
	total      int64
	successful int64
	failed     int64
	lastSyncAt *time.Time
	lastDur    time.Duration
}

// begin marks a run as started; it refuses when a run is active unless force is set
func (s *syncStats) begin(force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running > 0 && !force {
		return false
	}
	s.running++
	return true
}

func (s *syncStats) finish(at time.Time, d time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	s.total++
	if ok {
		s.successful++
	} else {
		s.failed++
	}
	s.lastSyncAt = &at
	s.lastDur = d
}

func (s *syncStats) snapshot() SyncStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SyncStatistics{
		TotalSyncs:      s.total,
		SuccessfulSyncs: s.successful,
		FailedSyncs:     s.failed,
		LastSyncAt:      s.lastSyncAt,
		LastDuration:    s.lastDur,
		InProgress:      s.running > 0,
	}
}

// SyncOrchestrator drives reconciliation over all items of a tenant
type SyncOrchestrator struct {
	*engineDeps
	reconciler *ReconciliationService
}

// SyncAll reconciles every matching item of a tenant. Each item gets its own timeout
// and its own transaction; a failing item is recorded and the run continues.
// Overlapping runs are refused with ErrSyncInProgress unless req.Force is set.
// If ctx ends mid-run the partial report is returned together with the context error.
func (o *SyncOrchestrator) SyncAll(ctx context.Context, req SyncRequest) (*SyncReport, error) {
	if !o.stats.begin(req.Force) {
		return nil, ErrSyncInProgress
	}

	started := time.Now()
	report := &SyncReport{
		TenantID:   req.TenantID,
		StartedAt:  started,
		Results:    make([]ReconcileResult, 0),
		ItemErrors: make([]ItemError, 0),
	}
	finish := func() {
		report.FinishedAt = time.Now()
		report.Duration = report.FinishedAt.Sub(started)
		o.stats.finish(report.FinishedAt, report.Duration, report.Errors == 0)
		o.metrics.RecordSync(ctx, report.Duration, report.Synced, report.Errors)
	}

	var items []capacity.InventoryItem
	err := o.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		items, err = repos.ItemRepo().FindAllForTenant(ctx, req.TenantID, capacity.ItemFilter{ServiceType: req.ServiceType})
		return err
	})
	if err != nil {
		report.Errors = 1
		finish()
		o.logger.Error("capacity sync failed to list items",
			zap.String("tenant_id", req.TenantID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("list inventory items: %w", err)
	}

	report.Total = len(items)
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		item := &items[i]

		itemCtx, cancel := context.WithTimeout(ctx, o.cfg.ItemTimeout)
		res, err := o.reconciler.Reconcile(itemCtx, req.TenantID, item.ID)
		cancel()

		if err != nil {
			report.Errors++
			report.ItemErrors = append(report.ItemErrors, ItemError{
				ItemID: item.ID,
				Code:   shared.CodeOf(err),
				Error:  err.Error(),
			})
			o.logger.Warn("item reconciliation failed",
				zap.String("item_id", item.ID.String()),
				zap.Error(err))
			continue
		}
		report.Synced++
		if res.Corrected {
			report.Corrected++
		}
		report.Results = append(report.Results, *res)
	}

	if err := ctx.Err(); err != nil {
		report.Errors += report.Total - report.Synced - len(report.ItemErrors)
		finish()
		return report, fmt.Errorf("capacity sync interrupted: %w", err)
	}

	finish()
	o.logger.Info("capacity sync completed",
		zap.String("tenant_id", req.TenantID.String()),
		zap.Int("total", report.Total),
		zap.Int("synced", report.Synced),
		zap.Int("errors", report.Errors),
		zap.Int("corrected", report.Corrected),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// Status returns the sync statistics together with the conflict registry state
func (o *SyncOrchestrator) Status() SyncStatus {
	stats := o.stats.snapshot()
	stats.ConflictsResolved = o.registry.ResolvedCount()
	return SyncStatus{
		Statistics:      stats,
		ActiveConflicts: o.registry.ActiveCount(),
		RecentConflicts: o.registry.History(),
	}
}
