package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appcap "github.com/tourops/backend/internal/application/capacity"
	"github.com/tourops/backend/internal/domain/capacity"
	"github.com/tourops/backend/internal/interfaces/http/dto"
)

// CapacityHandler exposes the capacity engine to operators
type CapacityHandler struct {
	BaseHandler
	engine *appcap.Engine
}

// NewCapacityHandler creates a new CapacityHandler
func NewCapacityHandler(engine *appcap.Engine) *CapacityHandler {
	return &CapacityHandler{engine: engine}
}

// RegisterRoutes mounts the capacity routes under rg
func (h *CapacityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/items/:id")
	items.POST("/changes", h.ApplyChange)
	items.GET("/availability", h.GetAvailability)
	items.GET("/history", h.GetHistory)
	items.POST("/reconcile", h.Reconcile)
	items.POST("/resolve", h.ResolveConflict)

	rg.POST("/bookings/:id/transitions", h.BookingTransition)
	rg.GET("/conflicts", h.ListConflicts)
	rg.POST("/sync", h.Sync)
	rg.GET("/sync/status", h.SyncStatus)
}

// ApplyChange applies one booking lifecycle action to an item.
// Transaction conflicts are retried before the error reaches the client.
//
// POST /capacity/items/:id/changes
func (h *CapacityHandler) ApplyChange(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.ApplyChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	var bookingID uuid.UUID
	if req.BookingID != "" {
		bookingID = uuid.MustParse(req.BookingID)
	}

	var result *appcap.CapacityChangeResult
	err := appcap.RetryOnConflict(c.Request.Context(), h.engine.Config().Retry, func(ctx context.Context) error {
		var err error
		result, err = h.engine.Reservations.ApplyCapacityChange(ctx, appcap.ApplyChangeRequest{
			TenantID:      tenantID,
			ItemID:        itemID,
			BookingID:     bookingID,
			TravelerCount: req.TravelerCount,
			Action:        req.Action,
		})
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BookingTransitionResponse reports whether a booking transition changed capacity
type BookingTransitionResponse struct {
	Applied bool                         `json:"applied"`
	Change  *appcap.CapacityChangeResult `json:"change,omitempty"`
}

// BookingTransition applies the capacity effect of a booking status change.
// Transitions that do not touch capacity answer applied=false.
//
// POST /capacity/bookings/:id/transitions
func (h *CapacityHandler) BookingTransition(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	bookingID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.BookingTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	status := capacity.BookingStatus(req.Status)
	previous := capacity.BookingStatus(req.PreviousStatus)
	if !status.IsValid() || (previous != "" && !previous.IsValid()) {
		h.BadRequest(c, "Unknown booking status")
		return
	}

	result, err := h.engine.Hook.OnBookingTransition(c.Request.Context(), capacity.Booking{
		ID:              bookingID,
		TenantID:        tenantID,
		InventoryItemID: uuid.MustParse(req.ItemID),
		TravelerCount:   req.TravelerCount,
		Status:          status,
	}, previous)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, BookingTransitionResponse{Applied: result != nil, Change: result})
}

// GetAvailability reports availability and price for one day, today by default.
//
// GET /capacity/items/:id/availability?date=YYYY-MM-DD
func (h *CapacityHandler) GetAvailability(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}

	var q dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if q.Date != "" {
		parsed, err := time.Parse(dto.DateLayout, q.Date)
		if err != nil {
			h.BadRequest(c, "date must be formatted as YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result, err := h.engine.History.GetAvailability(c.Request.Context(), tenantID, itemID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetHistory lists the item's retained audit records, newest first.
// end_date is inclusive of the whole day.
//
// GET /capacity/items/:id/history?start_date&end_date&limit
func (h *CapacityHandler) GetHistory(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}

	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	query := capacity.HistoryQuery{Limit: q.Limit}
	if q.StartDate != "" {
		start, err := time.Parse(dto.DateLayout, q.StartDate)
		if err != nil {
			h.BadRequest(c, "start_date must be formatted as YYYY-MM-DD")
			return
		}
		query.Start = &start
	}
	if q.EndDate != "" {
		end, err := time.Parse(dto.DateLayout, q.EndDate)
		if err != nil {
			h.BadRequest(c, "end_date must be formatted as YYYY-MM-DD")
			return
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
		query.End = &end
	}
	if query.Start != nil && query.End != nil && query.End.Before(*query.Start) {
		h.BadRequest(c, "end_date must not be before start_date")
		return
	}

	records, err := h.engine.History.GetHistory(c.Request.Context(), tenantID, itemID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}

// Reconcile recomputes one item's capacity from its active bookings.
//
// POST /capacity/items/:id/reconcile
func (h *CapacityHandler) Reconcile(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.engine.Reconciliation.Reconcile(c.Request.Context(), tenantID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ResolveConflict applies a resolution to a detected conflict.
//
// POST /capacity/items/:id/resolve
func (h *CapacityHandler) ResolveConflict(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.engine.Reconciliation.ResolveConflict(c.Request.Context(), appcap.ResolveRequest{
		TenantID:        tenantID,
		ItemID:          itemID,
		Resolution:      appcap.Resolution(req.Resolution),
		ManualAvailable: req.ManualAvailable,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListConflicts scans the tenant's items for discrepancies, most severe first.
//
// GET /capacity/conflicts?service_type=
func (h *CapacityHandler) ListConflicts(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var q dto.ConflictQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	serviceType, ok := h.serviceType(c, q.ServiceType)
	if !ok {
		return
	}

	conflicts, err := h.engine.Reconciliation.DetectConflicts(c.Request.Context(), tenantID,
		capacity.ItemFilter{ServiceType: serviceType})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conflicts)
}

// Sync reconciles every item of the tenant.
// Answers 409 SYNC_IN_PROGRESS when another run is active and force is false.
//
// POST /capacity/sync
func (h *CapacityHandler) Sync(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req dto.SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}
	serviceType, ok := h.serviceType(c, req.ServiceType)
	if !ok {
		return
	}

	report, err := h.engine.Sync.SyncAll(c.Request.Context(), appcap.SyncRequest{
		TenantID:    tenantID,
		ServiceType: serviceType,
		Force:       req.Force,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// SyncStatus reports sync statistics and recent conflicts.
//
// GET /capacity/sync/status
func (h *CapacityHandler) SyncStatus(c *gin.Context) {
	h.Success(c, h.engine.Sync.Status())
}

func (h *CapacityHandler) serviceType(c *gin.Context, raw string) (capacity.ServiceType, bool) {
	if raw == "" {
		return "", true
	}
	st := capacity.ServiceType(raw)
	if !st.IsValid() {
		h.BadRequest(c, "Unknown service_type "+raw)
		return "", false
	}
	return st, true
}
