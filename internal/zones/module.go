package zones

import (
	apphttp "collection_portal_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the zone store and its admin routes.
type Module struct {
	repo    *Repository
	handler *Handler
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := NewRepository(pool)
	return &Module{repo: repo, handler: NewHandler(repo)}
}

func (m *Module) Name() string {
	return "zones"
}

// Reader returns the zone store for other modules.
func (m *Module) Reader() Reader {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/zones", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
