package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appcap "github.com/tourops/backend/internal/application/capacity"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/infrastructure/config"
	"github.com/tourops/backend/internal/infrastructure/persistence"
	"github.com/tourops/backend/internal/interfaces/http/dto"
	"github.com/tourops/backend/internal/interfaces/http/middleware"
)

type capacityFixture struct {
	t        *testing.T
	db       *persistence.Database
	router   *gin.Engine
	tenantID uuid.UUID
}

func newCapacityFixture(t *testing.T) *capacityFixture {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "handler.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	engine := appcap.NewEngine(persistence.NewGormTransactionScope(db.DB), nil, nil, appcap.DefaultConfig())

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1/capacity", middleware.Tenant(middleware.DefaultTenantConfig()))
	NewCapacityHandler(engine).RegisterRoutes(api)

	return &capacityFixture{t: t, db: db, router: r, tenantID: uuid.New()}
}

func (f *capacityFixture) seedItem(serviceType capacity.ServiceType, total int) *capacity.InventoryItem {
	f.t.Helper()
	item, err := capacity.NewInventoryItem(f.tenantID, uuid.New(), "Sunset catamaran", serviceType, total)
	require.NoError(f.t, err)
	item.Pricing = capacity.PricingRules{BasePrice: decimal.NewFromInt(95), Currency: "EUR"}
	require.NoError(f.t, persistence.NewGormInventoryItemRepository(f.db.DB).Create(context.Background(), item))
	return item
}

func (f *capacityFixture) seedBooking(itemID uuid.UUID, travelers int, status capacity.BookingStatus) capacity.Booking {
	f.t.Helper()
	now := time.Now()
	booking := capacity.Booking{
		ID:              uuid.New(),
		TenantID:        f.tenantID,
		InventoryItemID: itemID,
		TravelerCount:   travelers,
		Status:          status,
		TotalAmount:     decimal.NewFromInt(int64(travelers) * 95),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(f.t, f.db.DB.Create(&booking).Error)
	return booking
}

func (f *capacityFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1/capacity"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.TenantHeaderKey, f.tenantID.String())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) dto.Response {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code)
	return resp
}

func itemPath(id uuid.UUID, suffix string) string {
	return "/items/" + id.String() + suffix
}

func TestCapacityHandler_ApplyChange(t *testing.T) {
	f := newCapacityFixture(t)

	t.Run("reserve by traveler count", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeTour, 10)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "reserve", "traveler_count": 3})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.CapacityChangeResult
		decodeData(t, w, &res)
		assert.Equal(t, capacity.ActionReserve, res.Action)
		assert.Equal(t, -3, res.Change)
		assert.Equal(t, 7, res.Available)
		assert.Equal(t, 3, res.Occupied)
	})

	t.Run("traveler count taken from booking", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeHotel, 8)
		booking := f.seedBooking(item.ID, 5, capacity.BookingStatusConfirmed)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "confirm", "booking_id": booking.ID.String()})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.CapacityChangeResult
		decodeData(t, w, &res)
		assert.Equal(t, 3, res.Available)
	})

	t.Run("cancel never exceeds total", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeActivity, 4)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "cancel", "traveler_count": 2})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.CapacityChangeResult
		decodeData(t, w, &res)
		assert.Equal(t, 4, res.Available)
		assert.Equal(t, 0, res.Change)
	})

	t.Run("insufficient capacity", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeTransport, 2)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "reserve", "traveler_count": 5})

		resp := assertErrorCode(t, w, http.StatusConflict, dto.CodeInsufficientCapacity)
		assert.EqualValues(t, 2, resp.Error.Details["available"])
		assert.EqualValues(t, 5, resp.Error.Details["required"])
		assert.False(t, resp.Error.Retryable)
	})

	t.Run("booking of another item", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeTour, 6)
		other := f.seedItem(capacity.ServiceTypeTour, 6)
		booking := f.seedBooking(other.ID, 2, capacity.BookingStatusPending)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "reserve", "booking_id": booking.ID.String()})

		assertErrorCode(t, w, http.StatusUnprocessableEntity, dto.CodeBookingItemMismatch)
	})

	t.Run("unknown action", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeTour, 6)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "refund", "traveler_count": 1})

		assertErrorCode(t, w, http.StatusUnprocessableEntity, dto.CodeInvalidAction)
	})

	t.Run("missing action", func(t *testing.T) {
		item := f.seedItem(capacity.ServiceTypeTour, 6)
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"traveler_count": 1})

		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("unknown item", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(uuid.New(), "/changes"), gin.H{"action": "reserve", "traveler_count": 1})

		assertErrorCode(t, w, http.StatusNotFound, dto.CodeItemNotFound)
	})

	t.Run("malformed item id", func(t *testing.T) {
		w := f.do(http.MethodPost, "/items/kayak-7/changes", gin.H{"action": "reserve", "traveler_count": 1})

		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})
}

func TestCapacityHandler_TenantIsolation(t *testing.T) {
	f := newCapacityFixture(t)
	item := f.seedItem(capacity.ServiceTypeTour, 5)

	intruder := *f
	intruder.tenantID = uuid.New()
	w := intruder.do(http.MethodGet, itemPath(item.ID, "/availability"), nil)
	assertErrorCode(t, w, http.StatusNotFound, dto.CodeItemNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/capacity"+itemPath(item.ID, "/availability"), nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeTenantRequired)
}

func TestCapacityHandler_GetAvailability(t *testing.T) {
	f := newCapacityFixture(t)
	item := f.seedItem(capacity.ServiceTypeRestaurant, 20)

	t.Run("for a given date", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/availability?date=2026-07-14"), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.AvailabilityResult
		decodeData(t, w, &res)
		assert.True(t, res.Available)
		assert.Equal(t, 20, res.Capacity)
		assert.Equal(t, 2026, res.Date.Year())
		assert.True(t, decimal.NewFromInt(95).Equal(res.Price))
	})

	t.Run("defaults to today", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/availability"), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.AvailabilityResult
		decodeData(t, w, &res)
		assert.Equal(t, time.Now().UTC().Format(dto.DateLayout), res.Date.UTC().Format(dto.DateLayout))
	})

	t.Run("malformed date", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/availability?date=14/07/2026"), nil)
		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})
}

func TestCapacityHandler_GetHistory(t *testing.T) {
	f := newCapacityFixture(t)
	item := f.seedItem(capacity.ServiceTypeTour, 10)
	for _, n := range []int{1, 2, 3} {
		w := f.do(http.MethodPost, itemPath(item.ID, "/changes"), gin.H{"action": "reserve", "traveler_count": n})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	today := time.Now().UTC().Format(dto.DateLayout)

	t.Run("newest first", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/history"), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var records []capacity.SyncRecord
		decodeData(t, w, &records)
		require.Len(t, records, 3)
		assert.Equal(t, -3, records[0].CapacityChange)
		assert.Equal(t, 4, records[0].NewAvailable)
		assert.Equal(t, -1, records[2].CapacityChange)
	})

	t.Run("limit", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/history?limit=2"), nil)

		var records []capacity.SyncRecord
		decodeData(t, w, &records)
		assert.Len(t, records, 2)
	})

	t.Run("end date covers the whole day", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/history?start_date="+today+"&end_date="+today), nil)

		var records []capacity.SyncRecord
		decodeData(t, w, &records)
		assert.Len(t, records, 3)
	})

	t.Run("range in the past is empty", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/history?start_date=2020-01-01&end_date=2020-01-31"), nil)

		var records []capacity.SyncRecord
		decodeData(t, w, &records)
		assert.Empty(t, records)
	})

	t.Run("inverted range", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/history?start_date=2026-02-01&end_date=2026-01-01"), nil)
		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("limit out of range", func(t *testing.T) {
		w := f.do(http.MethodGet, itemPath(item.ID, "/history?limit=500"), nil)
		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestCapacityHandler_ReconcileAndConflicts(t *testing.T) {
	f := newCapacityFixture(t)
	drifted := f.seedItem(capacity.ServiceTypeHotel, 10)
	f.seedBooking(drifted.ID, 3, capacity.BookingStatusConfirmed)
	f.seedBooking(drifted.ID, 4, capacity.BookingStatusCancelled)
	clean := f.seedItem(capacity.ServiceTypeTour, 6)

	t.Run("conflicts are detected without correcting", func(t *testing.T) {
		w := f.do(http.MethodGet, "/conflicts", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var conflicts []appcap.ConflictEntry
		decodeData(t, w, &conflicts)
		require.Len(t, conflicts, 1)
		assert.Equal(t, drifted.ID, conflicts[0].ItemID)
		assert.Equal(t, 7, conflicts[0].ExpectedAvailable)
		assert.Equal(t, 10, conflicts[0].Available)
	})

	t.Run("service type filter", func(t *testing.T) {
		w := f.do(http.MethodGet, "/conflicts?service_type=tour", nil)

		var conflicts []appcap.ConflictEntry
		decodeData(t, w, &conflicts)
		assert.Empty(t, conflicts)
	})

	t.Run("unknown service type", func(t *testing.T) {
		w := f.do(http.MethodGet, "/conflicts?service_type=spaceship", nil)
		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("reconcile corrects drift", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(drifted.ID, "/reconcile"), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.ReconcileResult
		decodeData(t, w, &res)
		assert.True(t, res.Corrected)
		assert.Equal(t, 7, res.Available)
		assert.Equal(t, 3, res.Discrepancy)
	})

	t.Run("reconcile of a clean item is a no-op", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(clean.ID, "/reconcile"), nil)

		var res appcap.ReconcileResult
		decodeData(t, w, &res)
		assert.False(t, res.Corrected)
		assert.Equal(t, 6, res.Available)
	})
}

func TestCapacityHandler_ResolveConflict(t *testing.T) {
	f := newCapacityFixture(t)
	item := f.seedItem(capacity.ServiceTypeActivity, 12)
	f.seedBooking(item.ID, 2, capacity.BookingStatusConfirmed)

	t.Run("manual override", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(item.ID, "/resolve"), gin.H{"resolution": "manual", "manual_available": 9})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.ResolveResult
		decodeData(t, w, &res)
		assert.Equal(t, appcap.ResolutionManual, res.Resolution)
		assert.Equal(t, 12, res.Previous)
		assert.Equal(t, 9, res.Available)
		assert.Equal(t, -3, res.Change)
	})

	t.Run("recalculate", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(item.ID, "/resolve"), gin.H{"resolution": "recalculate"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res appcap.ResolveResult
		decodeData(t, w, &res)
		assert.Equal(t, 9, res.Previous)
		assert.Equal(t, 10, res.Available)
	})

	t.Run("manual value above total", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(item.ID, "/resolve"), gin.H{"resolution": "manual", "manual_available": 50})
		assertErrorCode(t, w, http.StatusUnprocessableEntity, dto.CodeInvalidManualValue)
	})

	t.Run("manual value missing", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(item.ID, "/resolve"), gin.H{"resolution": "manual"})
		assertErrorCode(t, w, http.StatusUnprocessableEntity, dto.CodeInvalidManualValue)
	})

	t.Run("cancel_bookings is refused", func(t *testing.T) {
		w := f.do(http.MethodPost, itemPath(item.ID, "/resolve"), gin.H{"resolution": "cancel_bookings"})
		assertErrorCode(t, w, http.StatusUnprocessableEntity, dto.CodeUnsupportedResolution)
	})
}

func TestCapacityHandler_Sync(t *testing.T) {
	f := newCapacityFixture(t)
	drifted := f.seedItem(capacity.ServiceTypeHotel, 5)
	f.seedBooking(drifted.ID, 2, capacity.BookingStatusPending)
	f.seedItem(capacity.ServiceTypeTour, 3)

	t.Run("sync without body", func(t *testing.T) {
		w := f.do(http.MethodPost, "/sync", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var report appcap.SyncReport
		decodeData(t, w, &report)
		assert.Equal(t, f.tenantID, report.TenantID)
		assert.Equal(t, 2, report.Total)
		assert.Equal(t, 2, report.Synced)
		assert.Equal(t, 1, report.Corrected)
		assert.Zero(t, report.Errors)
	})

	t.Run("sync filtered by service type", func(t *testing.T) {
		w := f.do(http.MethodPost, "/sync", gin.H{"service_type": "tour"})

		var report appcap.SyncReport
		decodeData(t, w, &report)
		assert.Equal(t, 1, report.Total)
		assert.Zero(t, report.Corrected)
	})

	t.Run("unknown service type", func(t *testing.T) {
		w := f.do(http.MethodPost, "/sync", gin.H{"service_type": "submarine"})
		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("status", func(t *testing.T) {
		w := f.do(http.MethodGet, "/sync/status", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var status appcap.SyncStatus
		decodeData(t, w, &status)
		assert.EqualValues(t, 2, status.Statistics.TotalSyncs)
		assert.EqualValues(t, 2, status.Statistics.SuccessfulSyncs)
		assert.False(t, status.Statistics.InProgress)
		assert.NotNil(t, status.Statistics.LastSyncAt)
	})
}

func TestCapacityHandler_BookingTransition(t *testing.T) {
	f := newCapacityFixture(t)
	item := f.seedItem(capacity.ServiceTypeTour, 10)
	booking := f.seedBooking(item.ID, 4, capacity.BookingStatusPending)
	path := "/bookings/" + booking.ID.String() + "/transitions"

	transition := func(previous, next capacity.BookingStatus) BookingTransitionResponse {
		t.Helper()
		w := f.do(http.MethodPost, path, gin.H{
			"item_id":         item.ID.String(),
			"status":          string(next),
			"previous_status": string(previous),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp BookingTransitionResponse
		decodeData(t, w, &resp)
		return resp
	}

	created := transition("", capacity.BookingStatusPending)
	require.True(t, created.Applied)
	assert.Equal(t, capacity.ActionReserve, created.Change.Action)
	assert.Equal(t, 6, created.Change.Available)

	confirmed := transition(capacity.BookingStatusPending, capacity.BookingStatusConfirmed)
	assert.False(t, confirmed.Applied, "pending already holds capacity")
	assert.Nil(t, confirmed.Change)

	cancelled := transition(capacity.BookingStatusConfirmed, capacity.BookingStatusCancelled)
	require.True(t, cancelled.Applied)
	assert.Equal(t, capacity.ActionCancel, cancelled.Change.Action)
	assert.Equal(t, 10, cancelled.Change.Available)

	t.Run("unknown status", func(t *testing.T) {
		w := f.do(http.MethodPost, path, gin.H{"item_id": item.ID.String(), "status": "teleported"})
		assertErrorCode(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("booking on another item", func(t *testing.T) {
		other := f.seedItem(capacity.ServiceTypeTour, 10)
		w := f.do(http.MethodPost, path, gin.H{"item_id": other.ID.String(), "status": "confirmed"})
		assertErrorCode(t, w, http.StatusUnprocessableEntity, dto.CodeBookingItemMismatch)
	})
}
