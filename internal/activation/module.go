package activation

import (
	"collection_portal_backend/internal/billing"
	apphttp "collection_portal_backend/internal/http"
	"collection_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Module struct {
	engine  *Engine
	repo    *Repository
	handler *Handler
}

// NewModule wires the engine. redisClient may be nil, in which case runs
// are only serialized within this process.
func NewModule(pool *pgxpool.Pool, provider billing.Provider, redisClient *redis.Client, log *logger.Logger) *Module {
	var claimer Claimer = NewLocalClaimer()
	if redisClient != nil {
		claimer = NewRedisClaimer(redisClient, defaultClaimTTL)
	}

	repo := NewRepository(pool)
	engine := NewEngine(repo, provider, claimer, log)
	return &Module{engine: engine, repo: repo, handler: NewHandler(engine)}
}

func (m *Module) Name() string {
	return "activation"
}

func (m *Module) Engine() *Engine {
	return m.engine
}

// Repository doubles as the lister for the activation sweep.
func (m *Module) Repository() *Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/properties/:id/activate", m.handler.Activate)
}

var _ apphttp.Module = (*Module)(nil)
