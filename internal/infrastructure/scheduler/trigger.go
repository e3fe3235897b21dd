package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider provides the tenants whose catalogs are reconciled on schedule
type TenantProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StaticTenants is a fixed tenant list, typically from configuration
type StaticTenants []uuid.UUID

// ActiveTenantIDs implements TenantProvider
func (s StaticTenants) ActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s, nil
}

// IntervalTrigger submits one sync job per tenant every interval
type IntervalTrigger struct {
	interval       time.Duration
	scheduler      *SyncScheduler
	tenantProvider TenantProvider
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new trigger
func NewIntervalTrigger(interval time.Duration, scheduler *SyncScheduler, tenantProvider TenantProvider, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		interval:       interval,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger.Named("sync-trigger"),
	}
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	if t.interval <= 0 {
		return ErrInvalidConfig
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync trigger started", zap.Duration("interval", t.interval))
	return nil
}

// Stop stops the trigger loop
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Trigger(ctx)
		}
	}
}

// Trigger submits a job for every tenant and returns how many were queued.
// The whole round is skipped while any orchestrated sync is running; jobs of
// one round cover distinct tenants, so they bypass the in-progress guard.
func (t *IntervalTrigger) Trigger(ctx context.Context) int {
	if t.scheduler.Busy() {
		t.logger.Info("Capacity sync still running, skipping scheduled round")
		return 0
	}

	tenantIDs, err := t.tenantProvider.ActiveTenantIDs(ctx)
	if err != nil {
		t.logger.Error("Failed to get tenant IDs for capacity sync", zap.Error(err))
		return 0
	}

	queued := 0
	for _, tenantID := range tenantIDs {
		if err := t.scheduler.Submit(NewSyncJob(tenantID, true)); err != nil {
			t.logger.Error("Failed to schedule capacity sync for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		queued++
	}

	t.logger.Info("Scheduled capacity sync round",
		zap.Int("tenant_count", len(tenantIDs)),
		zap.Int("queued", queued),
	)
	return queued
}
