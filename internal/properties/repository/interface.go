package repository

import (
	"context"
	"time"

	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/properties/routing"
	"collection_portal_backend/internal/zones"

	"github.com/google/uuid"
)

// Property is a customer address going through service-area qualification.
type Property struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	Address             string
	Latitude            *float64
	Longitude           *float64
	ServiceStatus       domain.ServiceStatus
	ZoneID              *string
	PickupDay           *domain.Weekday
	PickupDaySource     domain.PickupDaySource
	PickupDayDetectedAt *time.Time
	InsertionCostMiles  *float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Location returns the geocoded point, if any.
func (p Property) Location() (zones.Point, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return zones.Point{}, false
	}
	return zones.Point{Lat: *p.Latitude, Lng: *p.Longitude}, true
}

type CreatePropertyParams struct {
	OwnerID   uuid.UUID
	Address   string
	Latitude  *float64
	Longitude *float64
}

// PropertyReader provides read-only access to properties.
type PropertyReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Property, error)
	// GetForOwner returns not-found when the property exists but belongs to
	// someone else.
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (Property, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Property, error)
	OwnedPropertyIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
	ListMissingCoordinates(ctx context.Context, limit int) ([]Property, error)
}

// PropertyWriter creates properties and records geocoding results.
type PropertyWriter interface {
	Create(ctx context.Context, params CreatePropertyParams) (Property, error)
	UpdateCoordinates(ctx context.Context, id uuid.UUID, point zones.Point) error
}

// AssignmentWriter persists zone and pickup day choices.
type AssignmentWriter interface {
	// SaveAssignment stores an optimizer result with source route_optimized.
	SaveAssignment(ctx context.Context, id uuid.UUID, assignment domain.Assignment) (Property, error)
	// SetPickupDayManual stores an operator choice with source manual.
	SetPickupDayManual(ctx context.Context, id uuid.UUID, zoneID *string, day domain.Weekday) (Property, error)
}

// StatusWriter mutates service_status.
type StatusWriter interface {
	// TransitionStatus moves the property only if it is still in from.
	// It reports whether the row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.ServiceStatus) (bool, error)
	// SetStatus writes to unconditionally and returns the previous status.
	SetStatus(ctx context.Context, id uuid.UUID, to domain.ServiceStatus) (domain.ServiceStatus, Property, error)
}

// Repository is the full properties store.
type Repository interface {
	PropertyReader
	PropertyWriter
	AssignmentWriter
	StatusWriter
	routing.StopSource
}
