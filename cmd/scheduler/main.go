package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collection_portal_backend/internal/activation"
	"collection_portal_backend/internal/billing"
	"collection_portal_backend/internal/dispatch"
	"collection_portal_backend/internal/events"
	"collection_portal_backend/internal/maps"
	"collection_portal_backend/internal/notification"
	"collection_portal_backend/internal/properties"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/db"
	"collection_portal_backend/platform/logger"
	"collection_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	redisClient, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		panic("failed to initialize task queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	eventBus := events.NewInMemoryBus(log)
	notification.New(cfg, log).RegisterHandlers(eventBus)

	// Worker-side pipeline wiring (no HTTP handlers required).
	zonesModule := zones.NewModule(pool)
	propertiesDeps := properties.ModuleDeps{
		Pool:      pool,
		Zones:     zonesModule.Reader(),
		Geocoder:  maps.NewService(cfg, log),
		Queue:     queue,
		Bus:       eventBus,
		Config:    cfg,
		Validator: validator.New(),
		Log:       log,
	}
	if cfg.IsDispatchConfigured() {
		propertiesDeps.Dispatch = dispatch.New(cfg, log)
	}
	propertiesModule := properties.NewModule(propertiesDeps)
	activationModule := activation.NewModule(pool, billing.NewProvider(cfg, log), redisClient, log)

	worker, err := scheduler.NewWorker(cfg, scheduler.Processors{
		Feasibility: propertiesModule.Service(),
		Activation:  activationModule.Engine(),
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	sweep := scheduler.NewActivationSweep(activationModule.Repository(), queue, log, cfg.ActivationSweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sweep.Run(gctx)
		return nil
	})
	_ = g.Wait()

	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
