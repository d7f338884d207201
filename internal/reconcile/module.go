package reconcile

import (
	"context"
	"time"

	"collection_portal_backend/internal/billing"
	"collection_portal_backend/internal/events"
	apphttp "collection_portal_backend/internal/http"
	"collection_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Module struct {
	service *Service
	handler *Handler
}

// NewModule wires the reconciler and subscribes it to logins. Reports live
// as long as the access token of the session that produced them.
func NewModule(pool *pgxpool.Pool, properties OwnedPropertyLister, provider billing.Provider, redisClient *redis.Client, sessionTTL time.Duration, bus events.Bus, log *logger.Logger) *Module {
	var reportCache ReportCache = NewMemoryCache(sessionTTL)
	if redisClient != nil {
		reportCache = NewRedisCache(redisClient, sessionTTL)
	}

	svc := NewService(NewRepository(pool), properties, provider, reportCache, log)
	bus.Subscribe(events.UserLoggedIn{}.EventName(), NewLoginHandler(svc, log))

	return &Module{service: svc, handler: NewHandler(svc)}
}

func (m *Module) Name() string {
	return "reconcile"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/billing")
	group.POST("/reconcile", m.handler.Reconcile)
	group.GET("/orphaned-subscriptions", m.handler.Orphaned)
}

// NewLoginHandler runs a reconcile for every successful login.
func NewLoginHandler(svc *Service, log *logger.Logger) events.Handler {
	return events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		login, ok := event.(events.UserLoggedIn)
		if !ok {
			return nil
		}
		if _, err := svc.Reconcile(ctx, login.UserID, login.SessionID); err != nil {
			log.BackgroundTaskFailed("reconcile.login", err, "user_id", login.UserID.String())
		}
		return nil
	})
}

var _ apphttp.Module = (*Module)(nil)
