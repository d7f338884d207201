package service

import (
	"context"
	"fmt"
	"math"

	"collection_portal_backend/internal/events"
	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/properties/repository"
	"collection_portal_backend/internal/properties/transport"
	"collection_portal_backend/internal/scheduler"

	"github.com/google/uuid"
)

type pipelineResult struct {
	property      repository.Property
	decision      domain.Decision
	qualification domain.Qualification
}

func (r pipelineResult) toResponse() transport.PipelineResponse {
	q := transport.QualificationResponse{
		Decision:  string(r.decision),
		Qualified: r.qualification.Qualified,
		Reason:    r.qualification.Reason,
	}
	if r.property.InsertionCostMiles != nil {
		miles := r.qualification.InsertionMiles
		minutes := math.Round(r.qualification.EstimatedMinutes*10) / 10
		q.InsertionMiles = &miles
		q.EstimatedMinutes = &minutes
	}
	return transport.PipelineResponse{Property: toPropertyResponse(r.property), Qualification: q}
}

// qualify runs zone matching, day assignment and the automatic approval
// decision for a pending property.
func (s *Service) qualify(ctx context.Context, property repository.Property) (pipelineResult, error) {
	result := pipelineResult{property: property}
	propertyID := property.ID.String()

	var assignment *domain.Assignment
	if s.cfg.IsAutoAssignPickupDayEnabled() {
		assigned, updated, err := s.assign(ctx, property)
		if err != nil {
			return result, err
		}
		assignment = assigned
		result.property = updated
	} else {
		s.log.PipelineStep(propertyID, "assign", "skipped", "reason", "automatic assignment disabled")
	}

	flags := domain.PipelineFlags{
		AutoApprove:        s.cfg.IsAutoApproveEnabled(),
		FeasibilityEnabled: s.cfg.IsFeasibilityCheckEnabled(),
		DispatchConfigured: s.dispatch != nil,
	}
	result.decision, result.qualification = domain.Decide(flags, s.policy(), assignment)
	if result.decision == domain.DecisionNone && assignment != nil {
		result.qualification = s.policy().Qualify(assignment.InsertionCostMiles)
	}
	s.log.PipelineStep(propertyID, "decide", string(result.decision), "reason", result.qualification.Reason)

	switch result.decision {
	case domain.DecisionManualReview:
		s.requestReview(ctx, result.property, result.qualification.Reason)
	case domain.DecisionCheckFeasibility:
		payload := scheduler.FeasibilityCheckPayload{PropertyID: propertyID, Day: string(assignment.PickupDay)}
		if err := s.queue.EnqueueFeasibilityCheck(ctx, payload); err != nil {
			s.log.BackgroundTaskFailed(scheduler.TaskFeasibilityCheck, err, "propertyId", propertyID)
			s.requestReview(ctx, result.property, "feasibility check could not be queued")
		}
	case domain.DecisionApprove:
		updated, err := s.approveAutomatically(ctx, result.property, domain.SourceAutomatic)
		if err != nil {
			return result, err
		}
		result.property = updated
	}

	return result, nil
}

// assign picks a zone and day and stores them. A nil assignment means the
// property has no coordinates, no zones exist or every day is full.
func (s *Service) assign(ctx context.Context, property repository.Property) (*domain.Assignment, repository.Property, error) {
	propertyID := property.ID.String()

	location, ok := property.Location()
	if !ok {
		s.log.PipelineStep(propertyID, "assign", "no_coordinates")
		return nil, property, nil
	}

	all, err := s.zones.List(ctx)
	if err != nil {
		return nil, property, fmt.Errorf("list zones: %w", err)
	}

	match, ok := s.matcher.Nearest(location, all)
	if !ok {
		s.log.PipelineStep(propertyID, "match", "no_zones")
		return nil, property, nil
	}
	s.log.PipelineStep(propertyID, "match", "matched", "zoneId", match.Zone.ID, "distanceMiles", match.DistanceMiles, "inService", match.InService)

	assignment, err := s.optimizer.Assign(ctx, property.ID, location, match.Zone)
	if err != nil {
		return nil, property, fmt.Errorf("optimize pickup day: %w", err)
	}
	if assignment == nil {
		s.log.PipelineStep(propertyID, "assign", "no_day_available", "zoneId", match.Zone.ID)
		return nil, property, nil
	}

	updated, err := s.repo.SaveAssignment(ctx, property.ID, *assignment)
	if err != nil {
		return nil, property, err
	}
	s.log.PipelineStep(propertyID, "assign", "route_optimized",
		"zoneId", assignment.ZoneID, "pickupDay", assignment.PickupDay, "insertionMiles", assignment.InsertionCostMiles)
	return assignment, updated, nil
}

// approveAutomatically moves pending_review to approved. A property that an
// operator already decided on is left alone.
func (s *Service) approveAutomatically(ctx context.Context, property repository.Property, source domain.TransitionSource) (repository.Property, error) {
	changed, err := s.repo.TransitionStatus(ctx, property.ID, domain.StatusPendingReview, domain.StatusApproved)
	if err != nil {
		return property, err
	}
	if !changed {
		s.log.PipelineStep(property.ID.String(), "approve", "skipped", "reason", "status no longer pending_review", "source", source)
		return s.repo.GetByID(ctx, property.ID)
	}

	property.ServiceStatus = domain.StatusApproved
	s.afterStatusChange(ctx, property.ID, domain.StatusPendingReview, domain.StatusApproved, source)
	return property, nil
}

// afterStatusChange runs once the status write has been committed.
func (s *Service) afterStatusChange(ctx context.Context, propertyID uuid.UUID, from, to domain.ServiceStatus, source domain.TransitionSource) {
	id := propertyID.String()
	s.log.PipelineStep(id, "status", string(to), "from", from, "source", source)

	if s.bus != nil && from != to {
		s.bus.Publish(ctx, events.PropertyServiceStatusChanged{
			BaseEvent:  events.NewBaseEvent(),
			PropertyID: propertyID,
			OldStatus:  string(from),
			NewStatus:  string(to),
			Source:     string(source),
		})
	}

	if to != domain.StatusApproved {
		return
	}
	if err := s.queue.EnqueueActivation(ctx, scheduler.ActivationPayload{PropertyID: id, Reason: "approved:" + string(source)}); err != nil {
		s.log.BackgroundTaskFailed(scheduler.TaskActivationRun, err, "propertyId", id)
	}
}

func (s *Service) requestReview(ctx context.Context, property repository.Property, reason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.PropertyNeedsReview{
		BaseEvent:          events.NewBaseEvent(),
		PropertyID:         property.ID,
		OwnerID:            property.OwnerID,
		Address:            property.Address,
		Reason:             reason,
		ZoneID:             property.ZoneID,
		InsertionCostMiles: property.InsertionCostMiles,
	})
}

func (s *Service) policy() domain.ApprovalPolicy {
	return domain.ApprovalPolicy{
		MaxMiles:        s.cfg.GetAutoApproveMaxMiles(),
		MaxMinutes:      s.cfg.GetAutoApproveMaxMinutes(),
		AverageSpeedMPH: s.cfg.GetAverageRouteSpeedMPH(),
	}
}
