package capacity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus is the booking lifecycle status as owned by the booking domain
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusNoShow     BookingStatus = "no_show"
)

// IsValid checks if the status is known
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// Booking is the read-only view of a booking that the capacity engine needs.
// The booking domain owns the table; this engine never writes it.
type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	TravelerCount   int             `gorm:"not null"`
	Status          BookingStatus   `gorm:"type:varchar(20);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name for GORM
func (Booking) TableName() string {
	return "bookings"
}

// ActivePolicy decides which booking statuses consume capacity.
// The reservation trigger set and the reconciliation sum both derive from it,
// so the two can never disagree about pending bookings.
type ActivePolicy struct {
	PendingHoldsCapacity bool
}

// DefaultActivePolicy counts pending bookings as holding capacity
func DefaultActivePolicy() ActivePolicy {
	return ActivePolicy{PendingHoldsCapacity: true}
}

// Holds reports whether a booking in status s consumes capacity
func (p ActivePolicy) Holds(s BookingStatus) bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusInProgress:
		return true
	case BookingStatusPending:
		return p.PendingHoldsCapacity
	}
	return false
}

// ActiveStatuses lists the statuses that consume capacity
func (p ActivePolicy) ActiveStatuses() []BookingStatus {
	statuses := make([]BookingStatus, 0, 3)
	if p.PendingHoldsCapacity {
		statuses = append(statuses, BookingStatusPending)
	}
	return append(statuses, BookingStatusConfirmed, BookingStatusInProgress)
}

// ActionForTransition derives the capacity action for a booking status change.
// previous is empty for a newly created booking. ok is false when capacity is unaffected.
func (p ActivePolicy) ActionForTransition(previous, next BookingStatus) (action SyncAction, ok bool) {
	wasHolding := previous != "" && p.Holds(previous)
	nowHolding := p.Holds(next)

	switch {
	case !wasHolding && nowHolding:
		if next == BookingStatusPending {
			return ActionReserve, true
		}
		return ActionConfirm, true
	case wasHolding && !nowHolding:
		if next == BookingStatusCompleted {
			return ActionComplete, true
		}
		return ActionCancel, true
	}
	return "", false
}

// OccupiedBy sums traveler counts over the bookings the policy counts as active
func (p ActivePolicy) OccupiedBy(bookings []Booking) int {
	occupied := 0
	for _, b := range bookings {
		if p.Holds(b.Status) {
			occupied += b.TravelerCount
		}
	}
	return occupied
}
