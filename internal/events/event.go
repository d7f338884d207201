// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"collection_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserLoggedIn is published after a successful login.
type UserLoggedIn struct {
	BaseEvent
	UserID    uuid.UUID `json:"userId"`
	SessionID string    `json:"sessionId"`
}

func (e UserLoggedIn) EventName() string { return "auth.user.logged_in" }

// =============================================================================
// Properties Domain Events
// =============================================================================

// PropertyNeedsReview is published when the automatic pipeline could not
// qualify a property and an operator has to look at it.
type PropertyNeedsReview struct {
	BaseEvent
	PropertyID         uuid.UUID `json:"propertyId"`
	OwnerID            uuid.UUID `json:"ownerId"`
	Address            string    `json:"address"`
	Reason             string    `json:"reason"`
	ZoneID             *string   `json:"zoneId,omitempty"`
	InsertionCostMiles *float64  `json:"insertionCostMiles,omitempty"`
}

func (e PropertyNeedsReview) EventName() string { return "properties.property.needs_review" }

// PropertyServiceStatusChanged is published after a status write has been
// persisted.
type PropertyServiceStatusChanged struct {
	BaseEvent
	PropertyID uuid.UUID `json:"propertyId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	Source     string    `json:"source"`
}

func (e PropertyServiceStatusChanged) EventName() string {
	return "properties.property.status_changed"
}
