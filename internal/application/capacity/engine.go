package capacity

import (
	"context"

	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// engineDeps is shared by every service of one Engine
type engineDeps struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	metrics   Metrics
	logger    *zap.Logger
	cfg       Config
	registry  *ConflictRegistry
	stats     *syncStats
}

// publishDomainEvents publishes and clears the item's pending events.
// Publishing is best effort and never changes the outcome of a committed operation.
func (d *engineDeps) publishDomainEvents(ctx context.Context, item *capacity.InventoryItem) {
	if item == nil {
		return
	}
	events := item.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, events...); err != nil {
			d.logger.Warn("failed to publish capacity events",
				zap.String("item_id", item.ID.String()),
				zap.Error(err))
		}
	}
	item.ClearDomainEvents()
}

// Engine is one process-scoped instance of the capacity reservation and
// synchronization engine. It owns the conflict registry and sync statistics.
type Engine struct {
	Reservations   *ReservationService
	Reconciliation *ReconciliationService
	Sync           *SyncOrchestrator
	History        *HistoryService
	Hook           *LifecycleHook

	deps *engineDeps
}

// Option customizes an Engine
type Option func(*engineDeps)

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(d *engineDeps) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewEngine creates an Engine. publisher may be nil.
func NewEngine(scope TransactionScope, publisher shared.EventPublisher, logger *zap.Logger, cfg Config, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	deps := &engineDeps{
		scope:     scope,
		publisher: publisher,
		metrics:   noopMetrics{},
		logger:    logger.Named("capacity"),
		cfg:       cfg,
		registry:  NewConflictRegistry(cfg.ConflictRetention, cfg.ConflictHistoryLimit),
		stats:     &syncStats{},
	}
	for _, opt := range opts {
		opt(deps)
	}

	reservations := &ReservationService{engineDeps: deps}
	reconciliation := &ReconciliationService{engineDeps: deps}

	return &Engine{
		Reservations:   reservations,
		Reconciliation: reconciliation,
		Sync:           &SyncOrchestrator{engineDeps: deps, reconciler: reconciliation},
		History:        &HistoryService{engineDeps: deps},
		Hook:           &LifecycleHook{engineDeps: deps, reservations: reservations},
		deps:           deps,
	}
}

// Registry returns the engine's conflict registry
func (e *Engine) Registry() *ConflictRegistry {
	return e.deps.registry
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.deps.cfg
}
