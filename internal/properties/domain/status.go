// Package domain provides core business rules for the properties bounded
// context: the service status lifecycle, pickup days and the automatic
// approval policy.
package domain

// ServiceStatus is the qualification state of a property.
type ServiceStatus string

const (
	StatusPendingReview ServiceStatus = "pending_review"
	StatusApproved      ServiceStatus = "approved"
	StatusDenied        ServiceStatus = "denied"
)

// PickupDaySource records who set the current pickup day.
type PickupDaySource string

const (
	PickupDaySourceManual         PickupDaySource = "manual"
	PickupDaySourceRouteOptimized PickupDaySource = "route_optimized"
)

// TransitionSource distinguishes pipeline writes from operator overrides.
type TransitionSource string

const (
	SourceAutomatic   TransitionSource = "automatic"
	SourceFeasibility TransitionSource = "feasibility"
	SourceAdmin       TransitionSource = "admin"
)

// Valid reports whether s is a known status.
func (s ServiceStatus) Valid() bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// CanTransition reports whether source may move a property from one status
// to another. The pipeline only ever leaves pending_review; an admin may set
// approved or denied from any state, including re-applying the same one.
func CanTransition(from, to ServiceStatus, source TransitionSource) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}

	switch source {
	case SourceAdmin:
		return to == StatusApproved || to == StatusDenied
	case SourceAutomatic, SourceFeasibility:
		return from == StatusPendingReview && to == StatusApproved
	default:
		return false
	}
}
