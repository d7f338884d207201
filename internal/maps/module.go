package maps

import (
	apphttp "collection_portal_backend/internal/http"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"
)

// Module wires the geocoder and the address lookup HTTP route.
type Module struct {
	service *Service
	handler *Handler
}

func NewModule(cfg config.GeocoderConfig, log *logger.Logger) *Module {
	svc := NewService(cfg, log)
	return &Module{service: svc, handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "maps"
}

// Service returns the geocoder for the properties pipeline.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/maps")
	group.GET("/address-lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
