package capacity

import "github.com/tourops/backend/internal/domain/shared"

// Capacity error taxonomy. Callers match with errors.Is; instances returned by the
// ledger carry diagnostic details (see shared.DomainError.Details).
var (
	ErrItemNotFound          = shared.NewDomainError("ITEM_NOT_FOUND", "Inventory item not found")
	ErrBookingNotFound       = shared.NewDomainError("BOOKING_NOT_FOUND", "Booking not found")
	ErrBookingItemMismatch   = shared.NewDomainError("BOOKING_ITEM_MISMATCH", "Booking does not reference this inventory item")
	ErrInvalidAction         = shared.NewDomainError("INVALID_ACTION", "Unsupported capacity action")
	ErrInsufficientCapacity  = shared.NewDomainError("INSUFFICIENT_CAPACITY", "Insufficient capacity available")
	ErrInvalidManualValue    = shared.NewDomainError("INVALID_MANUAL_VALUE", "Manual capacity must be between 0 and total capacity")
	ErrUnsupportedResolution = shared.NewDomainError("UNSUPPORTED_RESOLUTION", "Resolution is not supported by the capacity engine")
	ErrInvalidTravelerCount  = shared.NewDomainError("INVALID_TRAVELER_COUNT", "Traveler count must be positive")
	ErrInvalidCapacity       = shared.NewDomainError("INVALID_CAPACITY", "Total capacity must be at least 1")
	ErrCapacityInvariant     = shared.NewDomainError("CAPACITY_INVARIANT_VIOLATED", "Available capacity must stay between 0 and total capacity")
)

func insufficientCapacity(available, required int) error {
	return ErrInsufficientCapacity.
		WithDetail("available", available).
		WithDetail("required", required)
}

func invalidManualValue(manual, total int) error {
	return ErrInvalidManualValue.
		WithDetail("manual_available", manual).
		WithDetail("capacity_total", total)
}
