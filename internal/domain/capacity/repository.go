package capacity

import (
	"context"

	"github.com/google/uuid"
)

// ItemFilter narrows the items a tenant-wide operation visits.
// Zero values match everything.
type ItemFilter struct {
	ServiceType ServiceType
	Status      ItemStatus
}

// InventoryItemRepository defines the interface for capacity ledger persistence
type InventoryItemRepository interface {
	// FindByIDForTenant finds an item by ID within a tenant, returning ErrItemNotFound if absent
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*InventoryItem, error)

	// FindByIDForUpdate loads an item and holds a row lock until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*InventoryItem, error)

	// FindAllForTenant lists items of a tenant matching filter
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ItemFilter) ([]InventoryItem, error)

	// Create inserts a new item
	Create(ctx context.Context, item *InventoryItem) error

	// SaveWithLock persists capacity fields only if the stored version is item.Version-1.
	// Returns shared.ErrConcurrencyConflict otherwise.
	SaveWithLock(ctx context.Context, item *InventoryItem) error
}

// BookingRepository reads the booking domain's records
type BookingRepository interface {
	// FindByIDForTenant finds a booking, returning ErrBookingNotFound if absent
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Booking, error)

	// FindByItem lists bookings referencing an item whose status is in statuses
	FindByItem(ctx context.Context, tenantID, itemID uuid.UUID, statuses []BookingStatus) ([]Booking, error)
}
