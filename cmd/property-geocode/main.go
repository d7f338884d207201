package main

import (
	"context"

	"collection_portal_backend/internal/events"
	"collection_portal_backend/internal/maps"
	"collection_portal_backend/internal/properties"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/db"
	"collection_portal_backend/platform/logger"
	"collection_portal_backend/platform/validator"
)

const batchSize = 25

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting property geocode backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	// Backfill never enqueues work; the local queue is never started.
	queue := scheduler.NewLocalQueue(1, 1, log)
	defer func() { _ = queue.Close() }()

	module := properties.NewModule(properties.ModuleDeps{
		Pool:      pool,
		Zones:     zones.NewRepository(pool),
		Geocoder:  maps.NewService(cfg, log),
		Queue:     queue,
		Bus:       events.NewInMemoryBus(log),
		Config:    cfg,
		Validator: validator.New(),
		Log:       log,
	})

	total := 0
	for {
		result, err := module.Service().BackfillCoordinates(ctx, batchSize)
		if err != nil {
			log.Error("backfill batch failed", "error", err)
			return
		}
		total += result.Geocoded
		log.Info("backfill batch done", "scanned", result.Scanned, "geocoded", result.Geocoded, "failed", result.Failed)

		// Rows that failed stay missing; stop once a batch makes no progress.
		if result.Scanned == 0 || result.Geocoded == 0 {
			break
		}
	}

	log.Info("property geocode backfill complete", "geocoded", total)
}
