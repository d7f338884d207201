package service

import (
	"context"
	"fmt"

	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/properties/transport"
	"collection_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

// UpdateServiceStatus is the operator override. It writes unconditionally;
// entering or re-applying approved queues activation, which is a no-op when
// nothing is pending.
func (s *Service) UpdateServiceStatus(ctx context.Context, id uuid.UUID, req transport.UpdateServiceStatusRequest) (transport.PropertyResponse, error) {
	to := domain.ServiceStatus(req.Status)
	if !domain.CanTransition(domain.StatusPendingReview, to, domain.SourceAdmin) {
		return transport.PropertyResponse{}, apperr.Validation(fmt.Sprintf("status %q cannot be set manually", req.Status))
	}

	previous, property, err := s.repo.SetStatus(ctx, id, to)
	if err != nil {
		return transport.PropertyResponse{}, err
	}

	s.afterStatusChange(ctx, property.ID, previous, to, domain.SourceAdmin)
	return toPropertyResponse(property), nil
}

// SetPickupDay stores an operator-chosen day. The source goes back to
// manual so the optimizer's marker never covers a hand-edited day.
func (s *Service) SetPickupDay(ctx context.Context, id uuid.UUID, req transport.UpdatePickupDayRequest) (transport.PropertyResponse, error) {
	day, err := domain.ParseWeekday(req.PickupDay)
	if err != nil {
		return transport.PropertyResponse{}, apperr.Validation(err.Error())
	}

	if req.ZoneID != nil {
		if _, err := s.zones.GetByID(ctx, *req.ZoneID); err != nil {
			return transport.PropertyResponse{}, err
		}
	}

	property, err := s.repo.SetPickupDayManual(ctx, id, req.ZoneID, day)
	if err != nil {
		return transport.PropertyResponse{}, err
	}
	s.log.PipelineStep(id.String(), "assign", "manual", "pickupDay", day)
	return toPropertyResponse(property), nil
}

// Requalify re-runs the automatic pipeline for a pending property, geocoding
// it first if the original attempt failed.
func (s *Service) Requalify(ctx context.Context, id uuid.UUID) (transport.PipelineResponse, error) {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	if property.ServiceStatus != domain.StatusPendingReview {
		return transport.PipelineResponse{}, apperr.Conflict("only pending properties can be requalified")
	}

	if _, ok := property.Location(); !ok {
		if point := s.geocode(ctx, property.Address); point != nil {
			if err := s.repo.UpdateCoordinates(ctx, property.ID, *point); err != nil {
				return transport.PipelineResponse{}, err
			}
			property.Latitude = &point.Lat
			property.Longitude = &point.Lng
		}
	}

	result, err := s.qualify(ctx, property)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	return result.toResponse(), nil
}
