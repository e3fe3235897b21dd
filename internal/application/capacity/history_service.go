package capacity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tourops/backend/internal/domain/capacity"
)

// HistoryService answers read-only ledger queries
type HistoryService struct {
	*engineDeps
}

// GetHistory returns the item's retained audit records, newest first
func (s *HistoryService) GetHistory(ctx context.Context, tenantID, itemID uuid.UUID, q capacity.HistoryQuery) ([]capacity.SyncRecord, error) {
	item, err := s.load(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	return item.History(q), nil
}

// GetAvailability evaluates availability and price for one day
func (s *HistoryService) GetAvailability(ctx context.Context, tenantID, itemID uuid.UUID, date time.Time) (*AvailabilityResult, error) {
	item, err := s.load(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	return &AvailabilityResult{
		ItemID:        item.ID,
		Date:          date,
		Available:     item.IsAvailableOn(date),
		Status:        item.Status,
		Capacity:      item.CapacityAvailable,
		Total:         item.CapacityTotal,
		Occupied:      item.Occupied(),
		OccupancyRate: item.OccupancyRate(),
		Price:         item.PriceFor(date),
	}, nil
}

func (s *HistoryService) load(ctx context.Context, tenantID, itemID uuid.UUID) (*capacity.InventoryItem, error) {
	var item *capacity.InventoryItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		item, err = repos.ItemRepo().FindByIDForTenant(ctx, tenantID, itemID)
		return err
	})
	return item, err
}
