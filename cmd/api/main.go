package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collection_portal_backend/internal/activation"
	"collection_portal_backend/internal/auth"
	"collection_portal_backend/internal/billing"
	"collection_portal_backend/internal/dispatch"
	"collection_portal_backend/internal/events"
	apphttp "collection_portal_backend/internal/http"
	"collection_portal_backend/internal/http/router"
	"collection_portal_backend/internal/maps"
	"collection_portal_backend/internal/notification"
	"collection_portal_backend/internal/properties"
	"collection_portal_backend/internal/reconcile"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/internal/selections"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/db"
	"collection_portal_backend/platform/logger"
	"collection_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	localQueueSize    = 256
	localQueueWorkers = 4
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, cfg.MigrationsDir)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisClient := initRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	queue, localQueue, closeQueue := initTaskQueue(cfg, log)
	defer closeQueue()

	// Shared validator instance for dependency injection
	val := validator.New()
	billingProvider := billing.NewProvider(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notification.New(cfg, log).RegisterHandlers(eventBus)

	authModule := auth.NewModule(pool, cfg, eventBus, val, log)
	zonesModule := zones.NewModule(pool)
	mapsModule := maps.NewModule(cfg, log)

	propertiesDeps := properties.ModuleDeps{
		Pool:      pool,
		Zones:     zonesModule.Reader(),
		Geocoder:  mapsModule.Service(),
		Queue:     queue,
		Bus:       eventBus,
		Config:    cfg,
		Validator: val,
		Log:       log,
	}
	if cfg.IsDispatchConfigured() {
		propertiesDeps.Dispatch = dispatch.New(cfg, log)
	}
	propertiesModule := properties.NewModule(propertiesDeps)

	selectionsModule := selections.NewModule(pool, propertiesModule.Repository(), queue, val, log)
	activationModule := activation.NewModule(pool, billingProvider, redisClient, log)
	reconcileModule := reconcile.NewModule(pool, propertiesModule.Repository(), billingProvider, redisClient, cfg.GetAccessTokenTTL(), eventBus, log)

	// Without Redis the pipeline's background tasks run in this process.
	if localQueue != nil {
		localQueue.Start(ctx, scheduler.Processors{
			Feasibility: propertiesModule.Service(),
			Activation:  activationModule.Engine(),
		})
		go drainTaskErrors(localQueue, log)
		// Leftover selections are retried by the sweep in this mode.
		go scheduler.NewActivationSweep(activationModule.Repository(), queue, log, cfg.ActivationSweepInterval).Run(ctx)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			zonesModule,
			mapsModule,
			propertiesModule,
			selectionsModule,
			activationModule,
			reconcileModule,
		},
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	client, err := db.NewRedisClient(ctx, cfg)
	if errors.Is(err, db.ErrRedisNotConfigured) {
		log.Warn("REDIS_URL not configured; using in-process locks and caches")
		return nil
	}
	if err != nil {
		log.Error("failed to connect to redis; using in-process locks and caches", "error", err)
		return nil
	}
	return client
}

// initTaskQueue returns the asynq client when Redis is configured, and an
// in-process queue otherwise. The local queue is returned separately so it
// can be started once its processors exist.
func initTaskQueue(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.TaskQueue, *scheduler.LocalQueue, func()) {
	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err == nil {
			return client, nil, func() { _ = client.Close() }
		}
		log.Error("failed to initialize task queue client; falling back to in-process queue", "error", err)
	} else {
		log.Warn("REDIS_URL not configured; background tasks run in-process")
	}

	local := scheduler.NewLocalQueue(localQueueSize, localQueueWorkers, log)
	return local, local, func() { _ = local.Close() }
}

func drainTaskErrors(queue *scheduler.LocalQueue, log *logger.Logger) {
	for taskErr := range queue.Errors() {
		log.Warn("in-process task failed", "task", taskErr.Task, "property_id", taskErr.PropertyID, "error", taskErr.Err)
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
