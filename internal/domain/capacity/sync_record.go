package capacity

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MaxSyncHistory is the number of audit records retained per inventory item
const MaxSyncHistory = 100

// SyncAction identifies what produced a capacity mutation
type SyncAction string

const (
	ActionReserve        SyncAction = "reserve"
	ActionConfirm        SyncAction = "confirm"
	ActionCancel         SyncAction = "cancel"
	ActionComplete       SyncAction = "complete"
	ActionSyncCorrection SyncAction = "sync_correction"
	ActionManualOverride SyncAction = "manual_override"
)

// IsBookingAction returns true for the actions a booking lifecycle event may request
func (a SyncAction) IsBookingAction() bool {
	switch a {
	case ActionReserve, ActionConfirm, ActionCancel, ActionComplete:
		return true
	}
	return false
}

// Consumes returns true if the action takes capacity away
func (a SyncAction) Consumes() bool {
	return a == ActionReserve || a == ActionConfirm
}

// ParseBookingAction validates a raw action string
func ParseBookingAction(s string) (SyncAction, error) {
	a := SyncAction(s)
	if !a.IsBookingAction() {
		return "", ErrInvalidAction.WithDetail("action", s)
	}
	return a, nil
}

// SyncSource identifies who initiated a capacity mutation
type SyncSource string

const (
	SourceBookingSync SyncSource = "booking_sync"
	SourceManualSync  SyncSource = "manual_sync"
	SourceAdmin       SyncSource = "admin"
)

// SyncRecord is one append-only audit entry in an item's capacity history.
// For booking actions NewAvailable == PreviousAvailable + CapacityChange.
// For sync corrections Discrepancy == PreviousAvailable - NewAvailable.
type SyncRecord struct {
	Timestamp         time.Time  `json:"timestamp"`
	BookingID         *uuid.UUID `json:"booking_id,omitempty"`
	Action            SyncAction `json:"action"`
	CapacityChange    int        `json:"capacity_change"`
	PreviousAvailable int        `json:"previous_available"`
	NewAvailable      int        `json:"new_available"`
	Discrepancy       *int       `json:"discrepancy,omitempty"`
	Source            SyncSource `json:"source"`
}

// SyncHistory is the chronological audit trail embedded in an inventory item row
type SyncHistory []SyncRecord

// Value implements driver.Valuer
func (h SyncHistory) Value() (driver.Value, error) {
	if h == nil {
		h = SyncHistory{}
	}
	b, err := json.Marshal([]SyncRecord(h))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (h *SyncHistory) Scan(value any) error {
	return scanJSON(value, h)
}

// appendSyncRecord appends rec and drops the oldest entries beyond MaxSyncHistory.
// The returned slice never aliases the trimmed prefix.
func appendSyncRecord(history SyncHistory, rec SyncRecord) SyncHistory {
	history = append(history, rec)
	if over := len(history) - MaxSyncHistory; over > 0 {
		trimmed := make(SyncHistory, MaxSyncHistory)
		copy(trimmed, history[over:])
		return trimmed
	}
	return history
}

// HistoryQuery filters an item's capacity history
type HistoryQuery struct {
	Start *time.Time
	End   *time.Time
	Limit int
}

// filterHistory returns matching records, newest first, capped by q.Limit when positive.
// history is kept in chronological order, so walking it backwards yields newest first.
func filterHistory(history SyncHistory, q HistoryQuery) []SyncRecord {
	result := make([]SyncRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		if q.Start != nil && rec.Timestamp.Before(*q.Start) {
			continue
		}
		if q.End != nil && rec.Timestamp.After(*q.End) {
			continue
		}
		result = append(result, rec)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result
}
