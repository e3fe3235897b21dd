package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tourops/backend/internal/domain/capacity"
	"gorm.io/gorm"
)

// GormBookingRepository reads the booking domain's table
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByIDForTenant finds a booking by ID within a tenant
func (r *GormBookingRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*capacity.Booking, error) {
	var booking capacity.Booking
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, capacity.ErrBookingNotFound.WithDetail("booking_id", id.String())
		}
		return nil, translateError(err)
	}
	return &booking, nil
}

// FindByItem lists an item's bookings whose status is one of statuses
func (r *GormBookingRepository) FindByItem(ctx context.Context, tenantID, itemID uuid.UUID, statuses []capacity.BookingStatus) ([]capacity.Booking, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	var bookings []capacity.Booking
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND inventory_item_id = ? AND status IN ?", tenantID, itemID, statuses).
		Find(&bookings).Error; err != nil {
		return nil, translateError(err)
	}
	return bookings, nil
}

var _ capacity.BookingRepository = (*GormBookingRepository)(nil)
