package capacity

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReservationService is the only path through which booking lifecycle events change capacity
type ReservationService struct {
	*engineDeps
}

// ApplyCapacityChange applies one reserve/confirm/cancel/complete action to an item.
// The row is read, checked and written inside one transaction; the capacity-updated
// event is published only after commit.
func (s *ReservationService) ApplyCapacityChange(ctx context.Context, req ApplyChangeRequest) (*CapacityChangeResult, error) {
	action, err := capacity.ParseBookingAction(req.Action)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var (
		item   *capacity.InventoryItem
		change int
	)
	err = s.scope.Execute(opCtx, func(repos TransactionalRepositories) error {
		it, err := repos.ItemRepo().FindByIDForUpdate(opCtx, req.TenantID, req.ItemID)
		if err != nil {
			return err
		}

		travelers := req.TravelerCount
		amount := decimal.Zero
		var bookingRef *uuid.UUID
		if req.BookingID != uuid.Nil {
			booking, err := repos.BookingRepo().FindByIDForTenant(opCtx, req.TenantID, req.BookingID)
			if err != nil {
				return err
			}
			if booking.InventoryItemID != it.ID {
				return capacity.ErrBookingItemMismatch.WithDetail("booking_id", booking.ID.String())
			}
			if travelers == 0 {
				travelers = booking.TravelerCount
			}
			amount = booking.TotalAmount
			bookingRef = &booking.ID
		} else if travelers == 0 {
			return capacity.ErrBookingNotFound
		}

		change, err = it.ApplyChange(action, travelers, bookingRef, amount)
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
		err = asTransactionError(opCtx, err)
		if code := shared.CodeOf(err); code != "" {
			s.metrics.RecordRejection(ctx, code)
		}
		s.logger.Debug("capacity change rejected",
			zap.String("item_id", req.ItemID.String()),
			zap.String("action", string(action)),
			zap.Int("traveler_count", req.TravelerCount),
			zap.Error(err))
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	s.metrics.RecordChange(ctx, string(action), change)
	s.logger.Debug("capacity changed",
		zap.String("item_id", item.ID.String()),
		zap.String("action", string(action)),
		zap.Int("change", change),
		zap.Int("available", item.CapacityAvailable),
		zap.Int("total", item.CapacityTotal))

	return toChangeResult(item, action, change), nil
}
