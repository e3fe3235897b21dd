package capacity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MockItemRepository is a mock implementation of capacity.InventoryItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*capacity.InventoryItem, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capacity.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*capacity.InventoryItem, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capacity.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter capacity.ItemFilter) ([]capacity.InventoryItem, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]capacity.InventoryItem), args.Error(1)
}

func (m *MockItemRepository) Create(ctx context.Context, item *capacity.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) SaveWithLock(ctx context.Context, item *capacity.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// MockBookingRepository is a mock implementation of capacity.BookingRepository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*capacity.Booking, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capacity.Booking), args.Error(1)
}

func (m *MockBookingRepository) FindByItem(ctx context.Context, tenantID, itemID uuid.UUID, statuses []capacity.BookingStatus) ([]capacity.Booking, error) {
	args := m.Called(ctx, tenantID, itemID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]capacity.Booking), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return m.err
}

func (m *MockEventPublisher) GetEvents() []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, len(m.events))
	copy(result, m.events)
	return result
}

// MockMetrics counts recorded measurements
type MockMetrics struct {
	mu          sync.Mutex
	changes     int
	rejections  []string
	corrections int
	overrides   int
	syncs       int
}

func (m *MockMetrics) RecordChange(context.Context, string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes++
}

func (m *MockMetrics) RecordRejection(_ context.Context, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections = append(m.rejections, code)
}

func (m *MockMetrics) RecordCorrection(context.Context, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrections++
}

func (m *MockMetrics) RecordOverride(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides++
}

func (m *MockMetrics) RecordSync(context.Context, time.Duration, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs++
}

type testEngine struct {
	*Engine
	itemRepo    *MockItemRepository
	bookingRepo *MockBookingRepository
	publisher   *MockEventPublisher
	metrics     *MockMetrics
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	itemRepo := new(MockItemRepository)
	bookingRepo := new(MockBookingRepository)
	publisher := &MockEventPublisher{}
	metrics := &MockMetrics{}

	cfg := DefaultConfig()
	cfg.Retry.InitialInterval = time.Millisecond
	engine := NewEngine(NewNoOpTransactionScope(itemRepo, bookingRepo), publisher, zap.NewNop(), cfg, WithMetrics(metrics))

	return &testEngine{
		Engine:      engine,
		itemRepo:    itemRepo,
		bookingRepo: bookingRepo,
		publisher:   publisher,
		metrics:     metrics,
	}
}

func newTestItem(t *testing.T, tenantID uuid.UUID, total, available int) *capacity.InventoryItem {
	t.Helper()
	item, err := capacity.NewInventoryItem(tenantID, uuid.New(), "Lagoon Kayak Tour", capacity.ServiceTypeTour, total)
	require.NoError(t, err)
	item.CapacityAvailable = available
	return item
}

func newTestBooking(tenantID, itemID uuid.UUID, travelers int, status capacity.BookingStatus) capacity.Booking {
	return capacity.Booking{
		ID:              uuid.New(),
		TenantID:        tenantID,
		InventoryItemID: itemID,
		TravelerCount:   travelers,
		Status:          status,
		TotalAmount:     decimal.NewFromInt(int64(travelers) * 100),
	}
}
