package capacity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tourops/backend/internal/domain/capacity"
	"go.uber.org/zap"
)

// ReconciliationService compares stored capacity with the capacity implied by
// active bookings and repairs drift toward the bookings.
type ReconciliationService struct {
	*engineDeps
}

func (s *ReconciliationService) inspectItem(ctx context.Context, repos TransactionalRepositories, item *capacity.InventoryItem) (capacity.Inspection, error) {
	bookings, err := repos.BookingRepo().FindByItem(ctx, item.TenantID, item.ID, s.cfg.Policy.ActiveStatuses())
	if err != nil {
		return capacity.Inspection{}, err
	}
	return item.Inspect(s.cfg.Policy.OccupiedBy(bookings)), nil
}

// Inspect reports an item's drift without mutating anything
func (s *ReconciliationService) Inspect(ctx context.Context, tenantID, itemID uuid.UUID) (*ReconcileResult, error) {
	var result ReconcileResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByIDForTenant(ctx, tenantID, itemID)
		if err != nil {
			return err
		}
		in, err := s.inspectItem(ctx, repos, item)
		if err != nil {
			return err
		}
		result = toReconcileResult(item, in)
		result.Discrepancy = in.Discrepancy
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reconcile recomputes expected capacity from active bookings and, on drift, overwrites
// the stored counter and records a sync_correction. Either the counter and its audit
// record commit together or nothing does.
func (s *ReconciliationService) Reconcile(ctx context.Context, tenantID, itemID uuid.UUID) (*ReconcileResult, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var (
		item        *capacity.InventoryItem
		in          capacity.Inspection
		discrepancy int
		corrected   bool
	)
	err := s.scope.Execute(opCtx, func(repos TransactionalRepositories) error {
		it, err := repos.ItemRepo().FindByIDForUpdate(opCtx, tenantID, itemID)
		if err != nil {
			return err
		}
		in, err = s.inspectItem(opCtx, repos, it)
		if err != nil {
			return err
		}
		if in.HasDrift() {
			discrepancy, corrected = it.CorrectTo(in.ExpectedAvailable)
			if corrected {
				if err := repos.ItemRepo().SaveWithLock(opCtx, it); err != nil {
					return err
				}
			}
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, asTransactionError(opCtx, err)
	}

	now := time.Now()
	entry := newConflictEntry(item, in, s.cfg.SeverityThreshold, now)
	if corrected {
		s.registry.Resolve(entry, string(ResolutionRecalculate))
		s.metrics.RecordCorrection(ctx, discrepancy)
		s.publishDomainEvents(ctx, item)
		s.logger.Info("capacity drift corrected",
			zap.String("item_id", item.ID.String()),
			zap.Int("discrepancy", discrepancy),
			zap.Int("available", item.CapacityAvailable),
			zap.Int("occupied", in.Occupied))
	}
	if in.Oversold() {
		// active bookings exceed total capacity; only the booking domain can fix this
		s.registry.Register(entry)
		s.logger.Warn("inventory item oversold",
			zap.String("item_id", item.ID.String()),
			zap.Int("total", in.Total),
			zap.Int("occupied", in.Occupied))
	}

	result := toReconcileResult(item, in)
	result.Corrected = corrected
	result.Discrepancy = discrepancy
	return &result, nil
}

// DetectConflicts lists items whose stored counter disagrees with their active
// bookings, critical first. The ledger is not modified.
func (s *ReconciliationService) DetectConflicts(ctx context.Context, tenantID uuid.UUID, filter capacity.ItemFilter) ([]ConflictEntry, error) {
	conflicts := make([]ConflictEntry, 0)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		items, err := repos.ItemRepo().FindAllForTenant(ctx, tenantID, filter)
		if err != nil {
			return err
		}
		now := time.Now()
		for i := range items {
			item := &items[i]
			in, err := s.inspectItem(ctx, repos, item)
			if err != nil {
				return err
			}
			if in.HasDrift() || in.Oversold() {
				conflicts = append(conflicts, newConflictEntry(item, in, s.cfg.SeverityThreshold, now))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range conflicts {
		s.registry.Register(c)
	}
	sortConflicts(conflicts)

	s.logger.Debug("conflict detection finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("conflicts", len(conflicts)))
	return conflicts, nil
}

// ResolveConflict resolves an item's conflict by recalculation or manual override.
// cancel_bookings is refused: cancelling bookings belongs to the booking domain.
func (s *ReconciliationService) ResolveConflict(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	switch req.Resolution {
	case ResolutionRecalculate:
		before, err := s.Inspect(ctx, req.TenantID, req.ItemID)
		if err != nil {
			return nil, err
		}
		res, err := s.Reconcile(ctx, req.TenantID, req.ItemID)
		if err != nil {
			return nil, err
		}
		return &ResolveResult{
			ItemID:     res.ItemID,
			Resolution: req.Resolution,
			Previous:   before.Available,
			Available:  res.Available,
			Total:      res.Total,
			Change:     res.Available - before.Available,
		}, nil
	case ResolutionManual:
		return s.override(ctx, req)
	default:
		// includes cancel_bookings
		return nil, capacity.ErrUnsupportedResolution.WithDetail("resolution", string(req.Resolution))
	}
}

func (s *ReconciliationService) override(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	if req.ManualAvailable == nil {
		return nil, capacity.ErrInvalidManualValue.WithDetail("manual_available", nil)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var (
		item     *capacity.InventoryItem
		in       capacity.Inspection
		previous int
		change   int
	)
	err := s.scope.Execute(opCtx, func(repos TransactionalRepositories) error {
		it, err := repos.ItemRepo().FindByIDForUpdate(opCtx, req.TenantID, req.ItemID)
		if err != nil {
			return err
		}
		in, err = s.inspectItem(opCtx, repos, it)
		if err != nil {
			return err
		}
		previous = it.CapacityAvailable
		change, err = it.Override(*req.ManualAvailable)
		if err != nil {
			return err
		}
		if err := repos.ItemRepo().SaveWithLock(opCtx, it); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, asTransactionError(opCtx, err)
	}

	s.registry.Resolve(newConflictEntry(item, in, s.cfg.SeverityThreshold, time.Now()), string(ResolutionManual))
	s.metrics.RecordOverride(ctx)
	s.publishDomainEvents(ctx, item)
	s.logger.Warn("capacity manually overridden",
		zap.String("item_id", item.ID.String()),
		zap.Int("previous", previous),
		zap.Int("available", item.CapacityAvailable),
		zap.Int("expected_available", in.ExpectedAvailable))

	return &ResolveResult{
		ItemID:     item.ID,
		Resolution: ResolutionManual,
		Previous:   previous,
		Available:  item.CapacityAvailable,
		Total:      item.CapacityTotal,
		Change:     change,
	}, nil
}
