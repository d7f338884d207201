package service

import (
	"context"
	"math"
	"sync"
	"time"

	"collection_portal_backend/internal/dispatch"
	"collection_portal_backend/internal/events"
	"collection_portal_backend/internal/properties/domain"
	"collection_portal_backend/internal/properties/repository"
	"collection_portal_backend/internal/properties/routing"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]repository.Property
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[uuid.UUID]repository.Property)}
}

func (r *memoryRepo) Create(_ context.Context, params repository.CreatePropertyParams) (repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	p := repository.Property{
		ID:              uuid.New(),
		OwnerID:         params.OwnerID,
		Address:         params.Address,
		Latitude:        params.Latitude,
		Longitude:       params.Longitude,
		ServiceStatus:   domain.StatusPendingReview,
		PickupDaySource: domain.PickupDaySourceManual,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.items[p.ID] = p
	return p, nil
}

func (r *memoryRepo) put(p repository.Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
}

func (r *memoryRepo) get(id uuid.UUID) repository.Property {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.Property{}, apperr.NotFound("property not found")
	}
	return p, nil
}

func (r *memoryRepo) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (repository.Property, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil || p.OwnerID != ownerID {
		return repository.Property{}, apperr.NotFound("property not found")
	}
	return p, nil
}

func (r *memoryRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Property
	for _, p := range r.items {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) OwnedPropertyIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	items, _ := r.ListByOwner(ctx, ownerID)
	ids := make([]uuid.UUID, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *memoryRepo) ListMissingCoordinates(_ context.Context, limit int) ([]repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Property
	for _, p := range r.items {
		if p.Latitude == nil && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdateCoordinates(_ context.Context, id uuid.UUID, point zones.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return apperr.NotFound("property not found")
	}
	p.Latitude, p.Longitude = &point.Lat, &point.Lng
	r.items[id] = p
	return nil
}

func (r *memoryRepo) SaveAssignment(_ context.Context, id uuid.UUID, a domain.Assignment) (repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.items[id]
	zoneID, day, detected, cost := a.ZoneID, a.PickupDay, a.DetectedAt, a.InsertionCostMiles
	p.ZoneID, p.PickupDay, p.PickupDayDetectedAt, p.InsertionCostMiles = &zoneID, &day, &detected, &cost
	p.PickupDaySource = domain.PickupDaySourceRouteOptimized
	r.items[id] = p
	return p, nil
}

func (r *memoryRepo) SetPickupDayManual(_ context.Context, id uuid.UUID, zoneID *string, day domain.Weekday) (repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return repository.Property{}, apperr.NotFound("property not found")
	}
	if zoneID != nil {
		p.ZoneID = zoneID
	}
	p.PickupDay = &day
	p.PickupDaySource = domain.PickupDaySourceManual
	p.PickupDayDetectedAt, p.InsertionCostMiles = nil, nil
	r.items[id] = p
	return p, nil
}

func (r *memoryRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to domain.ServiceStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.ServiceStatus != from {
		return false, nil
	}
	p.ServiceStatus = to
	r.items[id] = p
	return true, nil
}

func (r *memoryRepo) SetStatus(_ context.Context, id uuid.UUID, to domain.ServiceStatus) (domain.ServiceStatus, repository.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return "", repository.Property{}, apperr.NotFound("property not found")
	}
	previous := p.ServiceStatus
	p.ServiceStatus = to
	r.items[id] = p
	return previous, p, nil
}

func (r *memoryRepo) ListApprovedStops(_ context.Context, zoneID string, day domain.Weekday, excludeID uuid.UUID) ([]routing.Stop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stops []routing.Stop
	for _, p := range r.items {
		if p.ID == excludeID || p.ServiceStatus != domain.StatusApproved || p.ZoneID == nil || *p.ZoneID != zoneID {
			continue
		}
		if p.PickupDay == nil || *p.PickupDay != day || p.Latitude == nil {
			continue
		}
		stops = append(stops, routing.Stop{PropertyID: p.ID, Location: zones.Point{Lat: *p.Latitude, Lng: *p.Longitude}})
	}
	return stops, nil
}

type staticGeocoder struct {
	point *zones.Point
	err   error
}

func (g staticGeocoder) Geocode(context.Context, string) (*zones.Point, error) {
	return g.point, g.err
}

type staticZones struct {
	items []zones.Zone
}

func (z staticZones) List(context.Context) ([]zones.Zone, error) { return z.items, nil }

func (z staticZones) GetByID(_ context.Context, id string) (zones.Zone, error) {
	for _, item := range z.items {
		if item.ID == id {
			return item, nil
		}
	}
	return zones.Zone{}, apperr.NotFound("zone not found")
}

type recordingQueue struct {
	mu          sync.Mutex
	feasibility []scheduler.FeasibilityCheckPayload
	activations []scheduler.ActivationPayload
}

func (q *recordingQueue) EnqueueFeasibilityCheck(_ context.Context, payload scheduler.FeasibilityCheckPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.feasibility = append(q.feasibility, payload)
	return nil
}

func (q *recordingQueue) EnqueueActivation(_ context.Context, payload scheduler.ActivationPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.activations = append(q.activations, payload)
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) reviews() []events.PropertyNeedsReview {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.PropertyNeedsReview
	for _, e := range b.published {
		if review, ok := e.(events.PropertyNeedsReview); ok {
			out = append(out, review)
		}
	}
	return out
}

type stubDispatch struct {
	result domain.FeasibilityResult
	err    error
	calls  int
}

func (d *stubDispatch) CheckFeasibility(context.Context, dispatch.FeasibilityRequest) (domain.FeasibilityResult, error) {
	d.calls++
	return d.result, d.err
}

type testPipelineConfig struct {
	autoAssign  bool
	autoApprove bool
	maxMiles    float64
	maxMinutes  float64
	feasibility bool
}

func (c testPipelineConfig) GetServiceRadiusMiles() float64     { return 5 }
func (c testPipelineConfig) GetAllowedPickupDays() []string     { return nil }
func (c testPipelineConfig) GetRouteMaxStopsPerDay() int        { return 0 }
func (c testPipelineConfig) IsAutoAssignPickupDayEnabled() bool { return c.autoAssign }
func (c testPipelineConfig) IsAutoApproveEnabled() bool         { return c.autoApprove }
func (c testPipelineConfig) GetAutoApproveMaxMiles() float64    { return c.maxMiles }
func (c testPipelineConfig) GetAutoApproveMaxMinutes() float64  { return c.maxMinutes }
func (c testPipelineConfig) GetAverageRouteSpeedMPH() float64   { return 25 }
func (c testPipelineConfig) IsFeasibilityCheckEnabled() bool    { return c.feasibility }

var frontRoyal = zones.Zone{ID: "z1", Name: "Front Royal", Center: zones.Point{Lat: 38.85, Lng: -78.2}, RadiusMiles: 10}

// milesNorth returns a point the given distance due north of p.
func milesNorth(p zones.Point, miles float64) zones.Point {
	return zones.Point{Lat: p.Lat + miles/zones.EarthRadiusMiles*180/math.Pi, Lng: p.Lng}
}
