package capacity

import (
	"context"

	"github.com/tourops/backend/internal/domain/capacity"
)

// TransactionScope provides transactional access to the capacity repositories.
// Everything fn does through repos commits or rolls back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories sharing one transaction.
//   - ItemRepo: the InventoryItem aggregate root; the only writable repository.
//   - BookingRepo: read-only view of the booking domain, used to derive occupancy.
type TransactionalRepositories interface {
	ItemRepo() capacity.InventoryItemRepository
	BookingRepo() capacity.BookingRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Useful in tests with mocked repositories.
type NoOpTransactionScope struct {
	itemRepo    capacity.InventoryItemRepository
	bookingRepo capacity.BookingRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(itemRepo capacity.InventoryItemRepository, bookingRepo capacity.BookingRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{itemRepo: itemRepo, bookingRepo: bookingRepo}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ItemRepo returns the inventory item repository.
func (s *NoOpTransactionScope) ItemRepo() capacity.InventoryItemRepository {
	return s.itemRepo
}

// BookingRepo returns the booking repository.
func (s *NoOpTransactionScope) BookingRepo() capacity.BookingRepository {
	return s.bookingRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
