package capacity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tourops/backend/internal/domain/shared"
)

// ServiceType classifies what a supplier sells
type ServiceType string

const (
	ServiceTypeHotel      ServiceType = "hotel"
	ServiceTypeTransport  ServiceType = "transport"
	ServiceTypeActivity   ServiceType = "activity"
	ServiceTypeTour       ServiceType = "tour"
	ServiceTypeRestaurant ServiceType = "restaurant"
	ServiceTypeOther      ServiceType = "other"
)

// IsValid checks if the service type is known
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypeHotel, ServiceTypeTransport, ServiceTypeActivity,
		ServiceTypeTour, ServiceTypeRestaurant, ServiceTypeOther:
		return true
	}
	return false
}

// ItemStatus is the sellability status of an inventory item
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
	ItemStatusSoldOut  ItemStatus = "sold_out"
	ItemStatusSeasonal ItemStatus = "seasonal"
)

// InventoryItem is the capacity ledger for one sellable service offered by a supplier.
// CapacityAvailable stays within [0, CapacityTotal] after every mutation, and every
// mutation appends to SyncHistory.
type InventoryItem struct {
	shared.TenantAggregateRoot
	SupplierID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	Name              string            `gorm:"type:varchar(200);not null"`
	ServiceType       ServiceType       `gorm:"type:varchar(20);not null;index"`
	Status            ItemStatus        `gorm:"type:varchar(20);not null;default:'active'"`
	CapacityTotal     int               `gorm:"not null"`
	CapacityAvailable int               `gorm:"not null"`
	Availability      AvailabilityRules `gorm:"type:text"`
	Pricing           PricingRules      `gorm:"type:text"`
	TotalBookings     int               `gorm:"not null;default:0"`
	TotalRevenue      decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	SyncHistory       SyncHistory       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a fully available, active inventory item
func NewInventoryItem(tenantID, supplierID uuid.UUID, name string, serviceType ServiceType, total int) (*InventoryItem, error) {
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if !serviceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SERVICE_TYPE", "Unknown service type")
	}
	if total < 1 {
		return nil, ErrInvalidCapacity.WithDetail("capacity_total", total)
	}

	return &InventoryItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SupplierID:          supplierID,
		Name:                name,
		ServiceType:         serviceType,
		Status:              ItemStatusActive,
		CapacityTotal:       total,
		CapacityAvailable:   total,
		TotalRevenue:        decimal.Zero,
		SyncHistory:         SyncHistory{},
	}, nil
}

// CheckInvariant verifies 0 <= CapacityAvailable <= CapacityTotal
func (i *InventoryItem) CheckInvariant() error {
	if i.CapacityAvailable < 0 || i.CapacityAvailable > i.CapacityTotal {
		return ErrCapacityInvariant.
			WithDetail("available", i.CapacityAvailable).
			WithDetail("total", i.CapacityTotal)
	}
	return nil
}

// Occupied returns the capacity currently consumed according to the stored counter
func (i *InventoryItem) Occupied() int {
	return i.CapacityTotal - i.CapacityAvailable
}

// OccupancyRate returns Occupied / CapacityTotal
func (i *InventoryItem) OccupancyRate() float64 {
	if i.CapacityTotal <= 0 {
		return 0
	}
	return float64(i.Occupied()) / float64(i.CapacityTotal)
}

// IsAvailableOn reports whether the item can be sold on date.
// Status, remaining capacity and every configured availability rule must all pass.
func (i *InventoryItem) IsAvailableOn(date time.Time) bool {
	if i.Status != ItemStatusActive {
		return false
	}
	if i.CapacityAvailable <= 0 {
		return false
	}
	return i.Availability.Allows(date)
}

// PriceFor returns the price applicable on date
func (i *InventoryItem) PriceFor(date time.Time) decimal.Decimal {
	return i.Pricing.PriceFor(date)
}

// ApplyChange applies a booking lifecycle action for travelers and returns the realized delta.
// reserve and confirm fail without mutation when capacity would go negative.
// cancel and complete release capacity but never beyond CapacityTotal.
// amount is the booking total added to cumulative revenue on consuming actions.
func (i *InventoryItem) ApplyChange(action SyncAction, travelers int, bookingID *uuid.UUID, amount decimal.Decimal) (int, error) {
	if !action.IsBookingAction() {
		return 0, ErrInvalidAction.WithDetail("action", string(action))
	}
	if travelers < 1 {
		return 0, ErrInvalidTravelerCount.WithDetail("traveler_count", travelers)
	}

	previous := i.CapacityAvailable
	var next int
	if action.Consumes() {
		next = previous - travelers
		if next < 0 {
			return 0, insufficientCapacity(previous, travelers)
		}
	} else {
		next = min(previous+travelers, i.CapacityTotal)
	}

	i.CapacityAvailable = next
	if err := i.CheckInvariant(); err != nil {
		i.CapacityAvailable = previous
		return 0, err
	}

	if action.Consumes() {
		i.TotalBookings++
		i.TotalRevenue = i.TotalRevenue.Add(amount)
	}

	change := next - previous
	i.record(SyncRecord{
		BookingID:         bookingID,
		Action:            action,
		CapacityChange:    change,
		PreviousAvailable: previous,
		NewAvailable:      next,
		Source:            SourceBookingSync,
	})
	i.AddDomainEvent(NewCapacityUpdatedEvent(i, bookingID, action, change))

	return change, nil
}

// Inspection compares the stored counter with the capacity implied by active bookings
type Inspection struct {
	Total             int
	Available         int
	Occupied          int
	ExpectedAvailable int
	// Discrepancy is Available - ExpectedAvailable
	Discrepancy int
}

// HasDrift reports whether the stored counter disagrees with the bookings
func (in Inspection) HasDrift() bool {
	return in.Discrepancy != 0
}

// Oversold reports a negative stored counter or more active travelers than total capacity
func (in Inspection) Oversold() bool {
	return in.Available < 0 || in.ExpectedAvailable < 0
}

// OccupancyRate returns Occupied / Total
func (in Inspection) OccupancyRate() float64 {
	if in.Total <= 0 {
		return 0
	}
	return float64(in.Occupied) / float64(in.Total)
}

// CorrectionTarget is the value a correction writes: ExpectedAvailable clamped into [0, Total]
func (in Inspection) CorrectionTarget() int {
	return max(0, min(in.ExpectedAvailable, in.Total))
}

// Inspect computes the inspection for the given occupied traveler count without mutating the item
func (i *InventoryItem) Inspect(occupied int) Inspection {
	expected := i.CapacityTotal - occupied
	return Inspection{
		Total:             i.CapacityTotal,
		Available:         i.CapacityAvailable,
		Occupied:          occupied,
		ExpectedAvailable: expected,
		Discrepancy:       i.CapacityAvailable - expected,
	}
}

// CorrectTo overwrites the counter with a recomputed value and records the discrepancy.
// Returns the recorded discrepancy (old - new) and false when nothing changed.
func (i *InventoryItem) CorrectTo(expected int) (int, bool) {
	target := max(0, min(expected, i.CapacityTotal))
	previous := i.CapacityAvailable
	discrepancy := previous - target
	if discrepancy == 0 {
		return 0, false
	}

	i.CapacityAvailable = target
	change := target - previous
	i.record(SyncRecord{
		Action:            ActionSyncCorrection,
		CapacityChange:    change,
		PreviousAvailable: previous,
		NewAvailable:      target,
		Discrepancy:       &discrepancy,
		Source:            SourceManualSync,
	})
	i.AddDomainEvent(NewCapacityUpdatedEvent(i, nil, ActionSyncCorrection, change))

	return discrepancy, true
}

// Override sets the counter to an operator-supplied value within [0, CapacityTotal]
func (i *InventoryItem) Override(manual int) (int, error) {
	if manual < 0 || manual > i.CapacityTotal {
		return 0, invalidManualValue(manual, i.CapacityTotal)
	}

	previous := i.CapacityAvailable
	i.CapacityAvailable = manual
	change := manual - previous
	i.record(SyncRecord{
		Action:            ActionManualOverride,
		CapacityChange:    change,
		PreviousAvailable: previous,
		NewAvailable:      manual,
		Source:            SourceAdmin,
	})
	i.AddDomainEvent(NewCapacityUpdatedEvent(i, nil, ActionManualOverride, change))

	return change, nil
}

// History returns the retained audit records matching q, newest first
func (i *InventoryItem) History(q HistoryQuery) []SyncRecord {
	return filterHistory(i.SyncHistory, q)
}

func (i *InventoryItem) record(rec SyncRecord) {
	now := time.Now()
	rec.Timestamp = now
	i.SyncHistory = appendSyncRecord(i.SyncHistory, rec)
	i.UpdatedAt = now
	i.IncrementVersion()
}
