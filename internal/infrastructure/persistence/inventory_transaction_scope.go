package persistence

import (
	"context"

	appcap "github.com/tourops/backend/internal/application/capacity"
	"github.com/tourops/backend/internal/domain/capacity"
	"gorm.io/gorm"
)

// GormTransactionScope implements the capacity TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error from fn rolls the
// transaction back; collisions with concurrent transactions surface as
// shared.ErrConcurrencyConflict.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcap.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateError(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ItemRepo returns the inventory item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ItemRepo() capacity.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

// BookingRepo returns the booking repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BookingRepo() capacity.BookingRepository {
	return NewGormBookingRepository(r.tx)
}

var _ appcap.TransactionScope = (*GormTransactionScope)(nil)
var _ appcap.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
