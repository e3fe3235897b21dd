package capacity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tourops/backend/internal/domain/capacity"
)

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("corrects drift toward active bookings and is idempotent", func(t *testing.T) {
		e := newTestEngine(t)
		item := newTestItem(t, tenantID, 20, 15)
		bookings := []capacity.Booking{
			newTestBooking(tenantID, item.ID, 2, capacity.BookingStatusConfirmed),
			newTestBooking(tenantID, item.ID, 2, capacity.BookingStatusInProgress),
			newTestBooking(tenantID, item.ID, 3, capacity.BookingStatusPending),
		}

		e.itemRepo.On("FindByIDForUpdate", mock.Anything, tenantID, item.ID).Return(item, nil)
		e.bookingRepo.On("FindByItem", mock.Anything, tenantID, item.ID, mock.Anything).Return(bookings, nil)
		e.itemRepo.On("SaveWithLock", mock.Anything, item).Return(nil).Once()

		first, err := e.Reconciliation.Reconcile(ctx, tenantID, item.ID)
		require.NoError(t, err)

		assert.True(t, first.Corrected)
		assert.Equal(t, 2, first.Discrepancy)
		assert.Equal(t, 13, first.Available)
		assert.Equal(t, 7, first.Occupied)
		assert.InDelta(t, 0.35, first.OccupancyRate, 0.0001)
		require.Len(t, item.SyncHistory, 1)
		assert.Equal(t, capacity.ActionSyncCorrection, item.SyncHistory[0].Action)
		assert.Equal(t, 2, *item.SyncHistory[0].Discrepancy)
		assert.Equal(t, int64(1), e.Registry().ResolvedCount())
		assert.Len(t, e.publisher.GetEvents(), 1)

		second, err := e.Reconciliation.Reconcile(ctx, tenantID, item.ID)
		require.NoError(t, err)

		assert.False(t, second.Corrected)
		assert.Equal(t, 0, second.Discrepancy)
		assert.Len(t, item.SyncHistory, 1)
		assert.Equal(t, int64(1), e.Registry().ResolvedCount())
		e.itemRepo.AssertNumberOfCalls(t, "SaveWithLock", 1)
	})

	t.Run("queries only statuses that hold capacity", func(t *testing.T) {
		e := newTestEngine(t)
		item := newTestItem(t, tenantID, 10, 10)

		e.itemRepo.On("FindByIDForUpdate", mock.Anything, tenantID, item.ID).Return(item, nil)
		e.bookingRepo.On("FindByItem", mock.Anything, tenantID, item.ID,
			[]capacity.BookingStatus{capacity.BookingStatusPending, capacity.BookingStatusConfirmed, capacity.BookingStatusInProgress},
		).Return([]capacity.Booking{}, nil)

		result, err := e.Reconciliation.Reconcile(ctx, tenantID, item.ID)

		require.NoError(t, err)
		assert.False(t, result.Corrected)
		e.bookingRepo.AssertExpectations(t)
	})

	t.Run("oversold item is clamped and stays an open critical conflict", func(t *testing.T) {
		e := newTestEngine(t)
		item := newTestItem(t, tenantID, 4, 1)
		bookings := []capacity.Booking{newTestBooking(tenantID, item.ID, 6, capacity.BookingStatusConfirmed)}

		e.itemRepo.On("FindByIDForUpdate", mock.Anything, tenantID, item.ID).Return(item, nil)
		e.bookingRepo.On("FindByItem", mock.Anything, tenantID, item.ID, mock.Anything).Return(bookings, nil)
		e.itemRepo.On("SaveWithLock", mock.Anything, item).Return(nil)

		result, err := e.Reconciliation.Reconcile(ctx, tenantID, item.ID)

		require.NoError(t, err)
		assert.True(t, result.Oversold)
		assert.Equal(t, 0, item.CapacityAvailable)
		open := e.Registry().Open(tenantID)
		require.Len(t, open, 1)
		assert.Equal(t, SeverityCritical, open[0].Severity)
	})

	t.Run("item not found", func(t *testing.T) {
		e := newTestEngine(t)
		itemID := uuid.New()
		e.itemRepo.On("FindByIDForUpdate", mock.Anything, tenantID, itemID).Return(nil, capacity.ErrItemNotFound)

		_, err := e.Reconciliation.Reconcile(ctx, tenantID, itemID)
		assert.ErrorIs(t, err, capacity.ErrItemNotFound)
	})
}

func TestReconciliationService_DetectConflicts(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	e := newTestEngine(t)

	low := newTestItem(t, tenantID, 20, 12)      // expected 10
	high := newTestItem(t, tenantID, 20, 18)     // expected 10
	critical := newTestItem(t, tenantID, 5, 0)   // expected -1
	consistent := newTestItem(t, tenantID, 8, 8) // expected 8
	items := []capacity.InventoryItem{*low, *high, *critical, *consistent}

	e.itemRepo.On("FindAllForTenant", mock.Anything, tenantID, capacity.ItemFilter{}).Return(items, nil)
	e.bookingRepo.On("FindByItem", mock.Anything, tenantID, low.ID, mock.Anything).
		Return([]capacity.Booking{newTestBooking(tenantID, low.ID, 10, capacity.BookingStatusConfirmed)}, nil)
	e.bookingRepo.On("FindByItem", mock.Anything, tenantID, high.ID, mock.Anything).
		Return([]capacity.Booking{newTestBooking(tenantID, high.ID, 10, capacity.BookingStatusConfirmed)}, nil)
	e.bookingRepo.On("FindByItem", mock.Anything, tenantID, critical.ID, mock.Anything).
		Return([]capacity.Booking{newTestBooking(tenantID, critical.ID, 6, capacity.BookingStatusConfirmed)}, nil)
	e.bookingRepo.On("FindByItem", mock.Anything, tenantID, consistent.ID, mock.Anything).
		Return([]capacity.Booking{}, nil)

	conflicts, err := e.Reconciliation.DetectConflicts(ctx, tenantID, capacity.ItemFilter{})

	require.NoError(t, err)
	require.Len(t, conflicts, 3)
	assert.Equal(t, critical.ID, conflicts[0].ItemID)
	assert.Equal(t, SeverityCritical, conflicts[0].Severity)
	assert.Equal(t, high.ID, conflicts[1].ItemID)
	assert.Equal(t, SeverityHigh, conflicts[1].Severity)
	assert.Equal(t, 8, conflicts[1].Discrepancy)
	assert.Equal(t, low.ID, conflicts[2].ItemID)
	assert.Equal(t, SeverityLow, conflicts[2].Severity)

	// read-only: nothing saved, stored values untouched
	e.itemRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	assert.Equal(t, 12, items[0].CapacityAvailable)
	assert.Equal(t, 18, items[1].CapacityAvailable)
	assert.Empty(t, e.publisher.GetEvents())
	assert.Equal(t, 3, e.Registry().ActiveCount())

	t.Run("repeated detection does not duplicate open conflicts", func(t *testing.T) {
		_, err := e.Reconciliation.DetectConflicts(ctx, tenantID, capacity.ItemFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, e.Registry().ActiveCount())
	})
}

func TestReconciliationService_ResolveConflict(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("manual override is bounds checked", func(t *testing.T) {
		e := newTestEngine(t)
		item := newTestItem(t, tenantID, 20, 3)

		e.itemRepo.On("FindByIDForUpdate", mock.Anything, tenantID, item.ID).Return(item, nil)
		e.bookingRepo.On("FindByItem", mock.Anything, tenantID, item.ID, mock.Anything).Return([]capacity.Booking{}, nil)
		e.itemRepo.On("SaveWithLock", mock.Anything, item).Return(nil)

		tooMany := 25
		_, err := e.Reconciliation.ResolveConflict(ctx, ResolveRequest{
			TenantID: tenantID, ItemID: item.ID, Resolution: ResolutionManual, ManualAvailable: &tooMany,
		})
		assert.ErrorIs(t, err, capacity.ErrInvalidManualValue)
		assert.Equal(t, 3, item.CapacityAvailable)
		e.itemRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)

		full := 20
		result, err := e.Reconciliation.ResolveConflict(ctx, ResolveRequest{
			TenantID: tenantID, ItemID: item.ID, Resolution: ResolutionManual, ManualAvailable: &full,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Previous)
		assert.Equal(t, 20, result.Available)
		assert.Equal(t, 17, result.Change)
		assert.Equal(t, capacity.ActionManualOverride, item.SyncHistory[len(item.SyncHistory)-1].Action)
		assert.Equal(t, capacity.SourceAdmin, item.SyncHistory[len(item.SyncHistory)-1].Source)
		assert.Equal(t, 1, e.metrics.overrides)
		assert.Equal(t, int64(1), e.Registry().ResolvedCount())
	})

	t.Run("manual override requires a value", func(t *testing.T) {
		e := newTestEngine(t)

		_, err := e.Reconciliation.ResolveConflict(ctx, ResolveRequest{
			TenantID: tenantID, ItemID: uuid.New(), Resolution: ResolutionManual,
		})
		assert.ErrorIs(t, err, capacity.ErrInvalidManualValue)
	})

	t.Run("recalculate delegates to reconciliation", func(t *testing.T) {
		e := newTestEngine(t)
		item := newTestItem(t, tenantID, 10, 10)
		bookings := []capacity.Booking{newTestBooking(tenantID, item.ID, 4, capacity.BookingStatusConfirmed)}

		e.itemRepo.On("FindByIDForTenant", mock.Anything, tenantID, item.ID).Return(item, nil)
		e.itemRepo.On("FindByIDForUpdate", mock.Anything, tenantID, item.ID).Return(item, nil)
		e.bookingRepo.On("FindByItem", mock.Anything, tenantID, item.ID, mock.Anything).Return(bookings, nil)
		e.itemRepo.On("SaveWithLock", mock.Anything, item).Return(nil)

		result, err := e.Reconciliation.ResolveConflict(ctx, ResolveRequest{
			TenantID: tenantID, ItemID: item.ID, Resolution: ResolutionRecalculate,
		})

		require.NoError(t, err)
		assert.Equal(t, 10, result.Previous)
		assert.Equal(t, 6, result.Available)
		assert.Equal(t, -4, result.Change)
	})

	t.Run("cancel_bookings fails fast", func(t *testing.T) {
		e := newTestEngine(t)

		_, err := e.Reconciliation.ResolveConflict(ctx, ResolveRequest{
			TenantID: tenantID, ItemID: uuid.New(), Resolution: ResolutionCancelBookings,
		})

		assert.ErrorIs(t, err, capacity.ErrUnsupportedResolution)
		e.itemRepo.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
		e.bookingRepo.AssertNotCalled(t, "FindByItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
