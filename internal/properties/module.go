// Package properties is the service-area qualification bounded context.
package properties

import (
	"collection_portal_backend/internal/events"
	apphttp "collection_portal_backend/internal/http"
	"collection_portal_backend/internal/properties/handler"
	"collection_portal_backend/internal/properties/repository"
	"collection_portal_backend/internal/properties/routing"
	"collection_portal_backend/internal/properties/service"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"
	"collection_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleDeps are the collaborators of the properties module.
type ModuleDeps struct {
	Pool     *pgxpool.Pool
	Zones    zones.Reader
	Geocoder service.Geocoder
	// Dispatch is nil unless the dispatch integration is configured.
	Dispatch  service.FeasibilityChecker
	Queue     scheduler.TaskQueue
	Bus       events.Bus
	Config    config.PipelineConfig
	Validator *validator.Validator
	Log       *logger.Logger
}

// Module wires the properties pipeline and its HTTP routes.
type Module struct {
	repo    *repository.PgRepository
	service *service.Service
	handler *handler.Handler
}

func NewModule(deps ModuleDeps) *Module {
	repo := repository.New(deps.Pool)
	optimizer := routing.NewOptimizer(repo, routing.Options{
		AllowedDays:    deps.Config.GetAllowedPickupDays(),
		MaxStopsPerDay: deps.Config.GetRouteMaxStopsPerDay(),
	})

	svc := service.New(service.Deps{
		Repo:      repo,
		Zones:     deps.Zones,
		Matcher:   zones.NewMatcher(deps.Config.GetServiceRadiusMiles()),
		Geocoder:  deps.Geocoder,
		Optimizer: optimizer,
		Dispatch:  deps.Dispatch,
		Queue:     deps.Queue,
		Bus:       deps.Bus,
		Config:    deps.Config,
		Log:       deps.Log,
	})

	return &Module{
		repo:    repo,
		service: svc,
		handler: handler.New(svc, deps.Validator),
	}
}

func (m *Module) Name() string {
	return "properties"
}

// Service returns the pipeline service, which is also the feasibility task
// processor.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the property store for other modules.
func (m *Module) Repository() *repository.PgRepository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/properties"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/properties"))
}

var _ apphttp.Module = (*Module)(nil)
var _ scheduler.FeasibilityProcessor = (*service.Service)(nil)
