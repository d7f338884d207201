package selections

import (
	apphttp "collection_portal_backend/internal/http"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/platform/logger"
	"collection_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	service *Service
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, properties PropertyOwnerLookup, queue scheduler.TaskQueue, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), properties, queue, log)
	return &Module{service: svc, handler: NewHandler(svc, val)}
}

func (m *Module) Name() string {
	return "selections"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/properties/:id/selections")
	group.GET("", m.handler.List)
	group.PUT("", m.handler.Replace)
	group.DELETE("/:serviceId", m.handler.Remove)
}

var _ apphttp.Module = (*Module)(nil)
