package service

import (
	"context"
	"fmt"

	"collection_portal_backend/internal/dispatch"
	"collection_portal_backend/internal/properties/domain"

	"github.com/google/uuid"
)

// ProcessFeasibilityCheck runs out of band after create. A feasible verdict
// approves the property through the same conditional transition as the
// synchronous path; anything else leaves the stored status untouched.
func (s *Service) ProcessFeasibilityCheck(ctx context.Context, propertyID uuid.UUID, day string) error {
	id := propertyID.String()

	if s.dispatch == nil {
		s.log.PipelineStep(id, "feasibility", "skipped", "reason", "dispatch not configured")
		return nil
	}

	weekday, err := domain.ParseWeekday(day)
	if err != nil {
		return err
	}

	property, err := s.repo.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if property.ServiceStatus != domain.StatusPendingReview {
		s.log.PipelineStep(id, "feasibility", "skipped", "reason", "status no longer pending_review", "status", property.ServiceStatus)
		return nil
	}
	if property.PickupDay == nil || *property.PickupDay != weekday {
		s.log.PipelineStep(id, "feasibility", "skipped", "reason", "pickup day changed since the check was queued")
		return nil
	}

	req := dispatch.FeasibilityRequest{
		PropertyID: property.ID,
		Address:    property.Address,
		Latitude:   property.Latitude,
		Longitude:  property.Longitude,
		Day:        weekday,
	}
	if property.ZoneID != nil {
		req.ZoneID = *property.ZoneID
	}

	result, err := s.dispatch.CheckFeasibility(ctx, req)
	if err != nil {
		s.log.UpstreamFailure("dispatch", "feasibility", err, "propertyId", id)
		return fmt.Errorf("feasibility check: %w", err)
	}

	if !result.Feasible {
		attrs := []any{"reason", result.Reason}
		reason := "dispatch rejected " + string(weekday)
		if result.SuggestedDay != nil {
			attrs = append(attrs, "suggestedDay", *result.SuggestedDay)
			reason += ", suggested " + string(*result.SuggestedDay)
		}
		s.log.PipelineStep(id, "feasibility", "infeasible", attrs...)
		s.requestReview(ctx, property, reason)
		return nil
	}

	s.log.PipelineStep(id, "feasibility", "feasible", "pickupDay", weekday)
	_, err = s.approveAutomatically(ctx, property, domain.SourceFeasibility)
	return err
}
