package service

import (
	"math"

	"collection_portal_backend/internal/properties/repository"
	"collection_portal_backend/internal/properties/transport"
)

func toPropertyResponse(p repository.Property) transport.PropertyResponse {
	resp := transport.PropertyResponse{
		ID:                  p.ID,
		Address:             p.Address,
		Latitude:            p.Latitude,
		Longitude:           p.Longitude,
		ServiceStatus:       string(p.ServiceStatus),
		ZoneID:              p.ZoneID,
		PickupDaySource:     string(p.PickupDaySource),
		PickupDayDetectedAt: p.PickupDayDetectedAt,
		InsertionCostMiles:  p.InsertionCostMiles,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.PickupDay != nil {
		day := string(*p.PickupDay)
		resp.PickupDay = &day
	}
	return resp
}

func roundMiles(v float64) float64 {
	return math.Round(v*100) / 100
}
