package capacity

import (
	"context"

	"github.com/tourops/backend/internal/domain/capacity"
	"go.uber.org/zap"
)

// LifecycleHook is the call site the booking domain uses after persisting a status change.
// It derives the capacity action from the transition and retries transaction conflicts.
type LifecycleHook struct {
	*engineDeps
	reservations *ReservationService
}

// OnBookingTransition applies the capacity effect of booking moving from previous to its
// current status. previous is empty for a new booking. A nil result with a nil error means
// the transition does not affect capacity.
func (h *LifecycleHook) OnBookingTransition(ctx context.Context, booking capacity.Booking, previous capacity.BookingStatus) (*CapacityChangeResult, error) {
	action, ok := h.cfg.Policy.ActionForTransition(previous, booking.Status)
	if !ok {
		return nil, nil
	}

	var result *CapacityChangeResult
	err := RetryOnConflict(ctx, h.cfg.Retry, func(ctx context.Context) error {
		var err error
		result, err = h.reservations.ApplyCapacityChange(ctx, ApplyChangeRequest{
			TenantID:      booking.TenantID,
			ItemID:        booking.InventoryItemID,
			BookingID:     booking.ID,
			TravelerCount: booking.TravelerCount,
			Action:        string(action),
		})
		return err
	})
	if err != nil {
		h.logger.Error("booking transition could not be applied to capacity",
			zap.String("booking_id", booking.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(booking.Status)),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}
