package dto

// ApplyChangeRequest is the body of POST /capacity/items/:id/changes.
// traveler_count 0 takes the count from the booking.
type ApplyChangeRequest struct {
	BookingID     string `json:"booking_id" binding:"omitempty,uuid"`
	TravelerCount int    `json:"traveler_count" binding:"min=0"`
	Action        string `json:"action" binding:"required"`
}

// ResolveConflictRequest is the body of POST /capacity/items/:id/resolve
type ResolveConflictRequest struct {
	Resolution      string `json:"resolution" binding:"required"`
	ManualAvailable *int   `json:"manual_available"`
}

// SyncRequest is the body of POST /capacity/sync
type SyncRequest struct {
	ServiceType string `json:"service_type"`
	Force       bool   `json:"force"`
}

// BookingTransitionRequest is the body of POST /capacity/bookings/:id/transitions.
// The booking domain sends it after persisting a status change; previous_status is
// empty for a new booking.
type BookingTransitionRequest struct {
	ItemID         string `json:"item_id" binding:"required,uuid"`
	TravelerCount  int    `json:"traveler_count" binding:"min=0"`
	Status         string `json:"status" binding:"required"`
	PreviousStatus string `json:"previous_status"`
}

// HistoryQuery binds GET /capacity/items/:id/history
type HistoryQuery struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Limit     int    `form:"limit" binding:"min=0,max=100"`
}

// AvailabilityQuery binds GET /capacity/items/:id/availability
type AvailabilityQuery struct {
	Date string `form:"date"`
}

// ConflictQuery binds GET /capacity/conflicts
type ConflictQuery struct {
	ServiceType string `form:"service_type"`
}

// DateLayout is the calendar date format used by query parameters
const DateLayout = "2006-01-02"
