package capacity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tourops/backend/internal/domain/capacity"
)

// ApplyChangeRequest asks the operator to apply one booking lifecycle action.
// TravelerCount 0 uses the booking's traveler count. BookingID may be nil only
// when TravelerCount is given.
type ApplyChangeRequest struct {
	TenantID      uuid.UUID
	ItemID        uuid.UUID
	BookingID     uuid.UUID
	TravelerCount int
	Action        string
}

// CapacityChangeResult reports the item state after a committed change
type CapacityChangeResult struct {
	ItemID    uuid.UUID           `json:"item_id"`
	Action    capacity.SyncAction `json:"action"`
	Change    int                 `json:"capacity_change"`
	Available int                 `json:"available"`
	Total     int                 `json:"total"`
	Occupied  int                 `json:"occupied"`
}

// ReconcileResult reports one item's reconciliation or inspection outcome
type ReconcileResult struct {
	ItemID            uuid.UUID            `json:"item_id"`
	ItemName          string               `json:"item_name"`
	ServiceType       capacity.ServiceType `json:"service_type"`
	Total             int                  `json:"total"`
	Available         int                  `json:"available"`
	Occupied          int                  `json:"occupied"`
	ExpectedAvailable int                  `json:"expected_available"`
	OccupancyRate     float64              `json:"occupancy_rate"`
	Corrected         bool                 `json:"corrected"`
	Discrepancy       int                  `json:"discrepancy,omitempty"`
	Oversold          bool                 `json:"oversold,omitempty"`
}

// Resolution names a conflict resolution strategy
type Resolution string

const (
	ResolutionRecalculate    Resolution = "recalculate"
	ResolutionManual         Resolution = "manual"
	ResolutionCancelBookings Resolution = "cancel_bookings"
)

// ResolveRequest asks for a conflict to be resolved
type ResolveRequest struct {
	TenantID        uuid.UUID
	ItemID          uuid.UUID
	Resolution      Resolution
	ManualAvailable *int
}

// ResolveResult reports the item state after a resolution
type ResolveResult struct {
	ItemID     uuid.UUID  `json:"item_id"`
	Resolution Resolution `json:"resolution"`
	Previous   int        `json:"previous_available"`
	Available  int        `json:"available"`
	Total      int        `json:"total"`
	Change     int        `json:"capacity_change"`
}

// SyncRequest drives a tenant-wide reconciliation
type SyncRequest struct {
	TenantID    uuid.UUID
	ServiceType capacity.ServiceType
	// Force runs even when another sync is in progress
	Force bool
}

// ItemError is a per-item failure collected during a sync
type ItemError struct {
	ItemID uuid.UUID `json:"item_id"`
	Code   string    `json:"code,omitempty"`
	Error  string    `json:"error"`
}

// SyncReport is the outcome of one SyncAll run
type SyncReport struct {
	TenantID   uuid.UUID         `json:"tenant_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Duration   time.Duration     `json:"duration"`
	Total      int               `json:"total"`
	Synced     int               `json:"synced"`
	Errors     int               `json:"errors"`
	Corrected  int               `json:"corrected"`
	Results    []ReconcileResult `json:"results"`
	ItemErrors []ItemError       `json:"item_errors,omitempty"`
}

// SyncStatus is the operator-facing view of sync state
type SyncStatus struct {
	Statistics      SyncStatistics  `json:"statistics"`
	ActiveConflicts int             `json:"active_conflicts"`
	RecentConflicts []ConflictEntry `json:"recent_conflicts"`
}

// AvailabilityResult answers an availability query for one day
type AvailabilityResult struct {
	ItemID        uuid.UUID           `json:"item_id"`
	Date          time.Time           `json:"date"`
	Available     bool                `json:"available"`
	Status        capacity.ItemStatus `json:"status"`
	Capacity      int                 `json:"capacity_available"`
	Total         int                 `json:"capacity_total"`
	Occupied      int                 `json:"occupied"`
	OccupancyRate float64             `json:"occupancy_rate"`
	Price         decimal.Decimal     `json:"price"`
}

func toChangeResult(item *capacity.InventoryItem, action capacity.SyncAction, change int) *CapacityChangeResult {
	return &CapacityChangeResult{
		ItemID:    item.ID,
		Action:    action,
		Change:    change,
		Available: item.CapacityAvailable,
		Total:     item.CapacityTotal,
		Occupied:  item.Occupied(),
	}
}

func toReconcileResult(item *capacity.InventoryItem, in capacity.Inspection) ReconcileResult {
	return ReconcileResult{
		ItemID:            item.ID,
		ItemName:          item.Name,
		ServiceType:       item.ServiceType,
		Total:             in.Total,
		Available:         item.CapacityAvailable,
		Occupied:          in.Occupied,
		ExpectedAvailable: in.ExpectedAvailable,
		OccupancyRate:     in.OccupancyRate(),
		Oversold:          in.Oversold(),
	}
}
