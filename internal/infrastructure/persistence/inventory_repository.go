package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements capacity.InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByIDForTenant finds an inventory item by ID within a tenant
func (r *GormInventoryItemRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*capacity.InventoryItem, error) {
	return r.first(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads an item holding a row lock until the transaction ends.
// sqlite has no row locks; its single writer connection serializes instead.
func (r *GormInventoryItemRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*capacity.InventoryItem, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(query, tenantID, id)
}

func (r *GormInventoryItemRepository) first(query *gorm.DB, tenantID, id uuid.UUID) (*capacity.InventoryItem, error) {
	var item capacity.InventoryItem
	if err := query.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, capacity.ErrItemNotFound.WithDetail("item_id", id.String())
		}
		return nil, translateError(err)
	}
	return &item, nil
}

// FindAllForTenant finds all inventory items of a tenant matching filter
func (r *GormInventoryItemRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter capacity.ItemFilter) ([]capacity.InventoryItem, error) {
	query := r.db.WithContext(ctx).
		Model(&capacity.InventoryItem{}).
		Where("tenant_id = ?", tenantID)
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", filter.ServiceType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var items []capacity.InventoryItem
	if err := query.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, translateError(err)
	}
	return items, nil
}

// ActiveTenantIDs lists tenants owning at least one active item
func (r *GormInventoryItemRepository) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&capacity.InventoryItem{}).
		Where("status = ?", capacity.ItemStatusActive).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

// Create inserts a new inventory item
func (r *GormInventoryItemRepository) Create(ctx context.Context, item *capacity.InventoryItem) error {
	if err := item.CheckInvariant(); err != nil {
		return err
	}
	return translateError(r.db.WithContext(ctx).Create(item).Error)
}

// SaveWithLock saves the mutable capacity fields with optimistic locking.
// The row is only updated if its stored version is item.Version-1.
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *capacity.InventoryItem) error {
	if err := item.CheckInvariant(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&capacity.InventoryItem{}).
		Where("id = ? AND tenant_id = ? AND version = ?", item.ID, item.TenantID, item.Version-1).
		Updates(map[string]any{
			"capacity_available": item.CapacityAvailable,
			"status":             item.Status,
			"total_bookings":     item.TotalBookings,
			"total_revenue":      item.TotalRevenue,
			"sync_history":       item.SyncHistory,
			"version":            item.Version,
			"updated_at":         item.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.
			WithDetail("item_id", item.ID.String()).
			WithDetail("expected_version", item.Version-1)
	}
	return nil
}

var _ capacity.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
