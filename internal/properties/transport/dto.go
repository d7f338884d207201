package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreatePropertyRequest struct {
	Address string `json:"address" validate:"required,min=5,max=500"`
}

type ServiceabilityRequest struct {
	Address string `form:"address" validate:"required,min=5,max=500"`
}

type UpdateServiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved denied"`
}

type UpdatePickupDayRequest struct {
	PickupDay string  `json:"pickupDay" validate:"required,pickupday"`
	ZoneID    *string `json:"zoneId,omitempty" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type PropertyResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Address             string     `json:"address"`
	Latitude            *float64   `json:"latitude,omitempty"`
	Longitude           *float64   `json:"longitude,omitempty"`
	ServiceStatus       string     `json:"serviceStatus"`
	ZoneID              *string    `json:"zoneId,omitempty"`
	PickupDay           *string    `json:"pickupDay,omitempty"`
	PickupDaySource     string     `json:"pickupDaySource"`
	PickupDayDetectedAt *time.Time `json:"pickupDayDetectedAt,omitempty"`
	InsertionCostMiles  *float64   `json:"insertionCostMiles,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type PropertyListResponse struct {
	Items []PropertyResponse `json:"items"`
	Total int                `json:"total"`
}

// QualificationResponse explains what the automatic path did.
type QualificationResponse struct {
	Decision         string   `json:"decision"`
	Qualified        bool     `json:"qualified"`
	InsertionMiles   *float64 `json:"insertionMiles,omitempty"`
	EstimatedMinutes *float64 `json:"estimatedMinutes,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}

type PipelineResponse struct {
	Property      PropertyResponse      `json:"property"`
	Qualification QualificationResponse `json:"qualification"`
}

type ServiceabilityResponse struct {
	Address       string   `json:"address"`
	Resolved      bool     `json:"resolved"`
	InService     bool     `json:"inService"`
	ZoneID        *string  `json:"zoneId,omitempty"`
	ZoneName      *string  `json:"zoneName,omitempty"`
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
}
