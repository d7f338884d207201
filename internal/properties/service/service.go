// Package service runs the property qualification pipeline: geocode, match a
// zone, pick a pickup day and decide on automatic approval.
package service

import (
	"context"

	"collection_portal_backend/internal/dispatch"
	"collection_portal_backend/internal/events"
	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/properties/repository"
	"collection_portal_backend/internal/properties/transport"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/apperr"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"
	"collection_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Geocoder resolves an address to coordinates. A nil point means the
// provider found nothing.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*zones.Point, error)
}

// RouteOptimizer picks the cheapest pickup day in a zone.
type RouteOptimizer interface {
	Assign(ctx context.Context, propertyID uuid.UUID, location zones.Point, zone zones.Zone) (*domain.Assignment, error)
}

// FeasibilityChecker asks the dispatch provider for a verdict.
type FeasibilityChecker interface {
	CheckFeasibility(ctx context.Context, req dispatch.FeasibilityRequest) (domain.FeasibilityResult, error)
}

// Deps are the collaborators of the properties service.
type Deps struct {
	Repo      repository.Repository
	Zones     zones.Reader
	Matcher   *zones.Matcher
	Geocoder  Geocoder
	Optimizer RouteOptimizer
	// Dispatch may be nil when no dispatch integration is configured.
	Dispatch FeasibilityChecker
	Queue    scheduler.TaskQueue
	Bus      events.Bus
	Config   config.PipelineConfig
	Log      *logger.Logger
}

type Service struct {
	repo      repository.Repository
	zones     zones.Reader
	matcher   *zones.Matcher
	geocoder  Geocoder
	optimizer RouteOptimizer
	dispatch  FeasibilityChecker
	queue     scheduler.TaskQueue
	bus       events.Bus
	cfg       config.PipelineConfig
	log       *logger.Logger
}

func New(deps Deps) *Service {
	matcher := deps.Matcher
	if matcher == nil {
		matcher = zones.NewMatcher(deps.Config.GetServiceRadiusMiles())
	}

	return &Service{
		repo:      deps.Repo,
		zones:     deps.Zones,
		matcher:   matcher,
		geocoder:  deps.Geocoder,
		optimizer: deps.Optimizer,
		dispatch:  deps.Dispatch,
		queue:     deps.Queue,
		bus:       deps.Bus,
		cfg:       deps.Config,
		log:       deps.Log,
	}
}

// Create persists a property and runs the automatic pipeline. Once the row
// is stored the call succeeds, whatever happens in the later steps.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreatePropertyRequest) (transport.PipelineResponse, error) {
	address := sanitize.Address(req.Address)
	if address == "" {
		return transport.PipelineResponse{}, apperr.Validation("address is required")
	}

	point := s.geocode(ctx, address)

	params := repository.CreatePropertyParams{OwnerID: ownerID, Address: address}
	if point != nil {
		params.Latitude = &point.Lat
		params.Longitude = &point.Lng
	}

	property, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	s.log.PipelineStep(property.ID.String(), "create", "stored", "geocoded", point != nil)

	result, err := s.qualify(ctx, property)
	if err != nil {
		s.log.Error("qualification failed after create", "error", err, "propertyId", property.ID)
		result = pipelineResult{property: property, decision: domain.DecisionManualReview}
	}

	return result.toResponse(), nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (transport.PropertyResponse, error) {
	property, err := s.repo.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return transport.PropertyResponse{}, err
	}
	return toPropertyResponse(property), nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) (transport.PropertyListResponse, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return transport.PropertyListResponse{}, err
	}

	resp := transport.PropertyListResponse{Items: make([]transport.PropertyResponse, 0, len(items)), Total: len(items)}
	for _, item := range items {
		resp.Items = append(resp.Items, toPropertyResponse(item))
	}
	return resp, nil
}

// CheckServiceability is the advisory pre-creation check. It never fails on
// upstream errors: an address the geocoder cannot resolve is reported as in
// service with Resolved=false, the same way property creation fails open.
func (s *Service) CheckServiceability(ctx context.Context, address string) (transport.ServiceabilityResponse, error) {
	address = sanitize.Address(address)
	resp := transport.ServiceabilityResponse{Address: address}

	point := s.geocode(ctx, address)
	if point == nil {
		resp.InService = true
		return resp, nil
	}
	resp.Resolved = true

	all, err := s.zones.List(ctx)
	if err != nil {
		return transport.ServiceabilityResponse{}, err
	}

	match, ok := s.matcher.Nearest(*point, all)
	if !ok {
		return resp, nil
	}

	resp.InService = match.InService
	resp.ZoneID = &match.Zone.ID
	resp.ZoneName = &match.Zone.Name
	distance := roundMiles(match.DistanceMiles)
	resp.DistanceMiles = &distance
	return resp, nil
}

func (s *Service) geocode(ctx context.Context, address string) *zones.Point {
	if s.geocoder == nil {
		return nil
	}

	point, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		s.log.UpstreamFailure("geocoder", "geocode", err, "address", address)
		return nil
	}
	if point == nil {
		s.log.Warn("address could not be geocoded", "address", address)
	}
	return point
}
