package capacity

import (
	"github.com/google/uuid"
	"github.com/tourops/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInventoryItem = "InventoryItem"

// EventTypeCapacityUpdated is published after every committed capacity mutation
const EventTypeCapacityUpdated = "capacity-updated"

// CapacityUpdatedEvent notifies observers that an item's available capacity changed.
// Timestamp is carried by the embedded base event.
type CapacityUpdatedEvent struct {
	shared.BaseDomainEvent
	ItemID         uuid.UUID  `json:"item_id"`
	BookingID      *uuid.UUID `json:"booking_id,omitempty"`
	Action         SyncAction `json:"action"`
	CapacityChange int        `json:"capacity_change"`
	Available      int        `json:"available"`
	Total          int        `json:"total"`
}

// NewCapacityUpdatedEvent creates a new CapacityUpdatedEvent from the item's current state
func NewCapacityUpdatedEvent(item *InventoryItem, bookingID *uuid.UUID, action SyncAction, change int) *CapacityUpdatedEvent {
	return &CapacityUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCapacityUpdated, AggregateTypeInventoryItem, item.ID, item.TenantID),
		ItemID:          item.ID,
		BookingID:       bookingID,
		Action:          action,
		CapacityChange:  change,
		Available:       item.CapacityAvailable,
		Total:           item.CapacityTotal,
	}
}

// EventType returns the event type name
func (e *CapacityUpdatedEvent) EventType() string {
	return EventTypeCapacityUpdated
}
