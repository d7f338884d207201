// Package selections stores the services a customer picks for a property
// before the property is approved for collection.
package selections

import (
	"context"
	"fmt"
	"strings"

	"collection_portal_backend/internal/properties/domain"
	propertiesrepo "collection_portal_backend/internal/properties/repository"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/platform/apperr"
	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const msgSelectionNotFound = "selection not found"

// PropertyOwnerLookup resolves a property for its owner. Anyone else gets
// not-found.
type PropertyOwnerLookup interface {
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (propertiesrepo.Property, error)
}

type Service struct {
	store      Store
	properties PropertyOwnerLookup
	queue      scheduler.TaskQueue
	log        *logger.Logger
}

func NewService(store Store, properties PropertyOwnerLookup, queue scheduler.TaskQueue, log *logger.Logger) *Service {
	return &Service{store: store, properties: properties, queue: queue, log: log}
}

func (s *Service) List(ctx context.Context, ownerID, propertyID uuid.UUID) (SelectionListResponse, error) {
	if _, err := s.properties.GetForOwner(ctx, propertyID, ownerID); err != nil {
		return SelectionListResponse{}, err
	}

	items, err := s.store.ListByProperty(ctx, propertyID)
	if err != nil {
		return SelectionListResponse{}, err
	}
	return toListResponse(items), nil
}

// Replace saves the customer's selections in any service status. When the
// property is already approved, activation is queued without waiting for it.
// Services the property already subscribes to are left out and reported,
// unless the request asks for an additional subscription.
func (s *Service) Replace(ctx context.Context, ownerID, propertyID uuid.UUID, req ReplaceSelectionsRequest) (SelectionListResponse, error) {
	property, err := s.properties.GetForOwner(ctx, propertyID, ownerID)
	if err != nil {
		return SelectionListResponse{}, err
	}

	inputs, err := s.validateItems(ctx, req.Items)
	if err != nil {
		return SelectionListResponse{}, err
	}

	saved, err := s.store.Replace(ctx, propertyID, ownerID, inputs, req.AllowAdditionalSubscriptions)
	if err != nil {
		return SelectionListResponse{}, err
	}

	resp := toListResponse(saved.Selections)
	resp.AlreadySubscribed = saved.AlreadySubscribed
	if property.ServiceStatus == domain.StatusApproved && len(saved.Selections) > 0 {
		payload := scheduler.ActivationPayload{PropertyID: propertyID.String(), Reason: "selections_saved"}
		if err := s.queue.EnqueueActivation(ctx, payload); err != nil {
			s.log.BackgroundTaskFailed(scheduler.TaskActivationRun, err, "propertyId", propertyID)
		} else {
			resp.ActivationQueued = true
		}
	}
	return resp, nil
}

func (s *Service) Remove(ctx context.Context, ownerID, propertyID, serviceID uuid.UUID) error {
	if _, err := s.properties.GetForOwner(ctx, propertyID, ownerID); err != nil {
		return err
	}

	deleted, err := s.store.DeleteByService(ctx, propertyID, serviceID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound(msgSelectionNotFound)
	}
	return nil
}

func (s *Service) validateItems(ctx context.Context, items []SelectionItem) ([]SelectionInput, error) {
	inputs := make([]SelectionInput, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, apperr.Validation("quantity must be at least 1")
		}
		if seen[item.ServiceID] {
			return nil, apperr.Validation(fmt.Sprintf("service %s selected more than once", item.ServiceID))
		}
		seen[item.ServiceID] = true
		ids = append(ids, item.ServiceID)
		inputs = append(inputs, SelectionInput{ServiceID: item.ServiceID, Quantity: item.Quantity, UseSticker: item.UseSticker})
	}

	missing, err := s.store.InactiveOrUnknownServices(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, id := range missing {
			names = append(names, id.String())
		}
		return nil, apperr.Validation("unknown or inactive services").WithDetails(strings.Join(names, ","))
	}
	return inputs, nil
}
