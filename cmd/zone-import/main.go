package main

import (
	"context"
	"os"

	"collection_portal_backend/internal/zones"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/db"
	"collection_portal_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	path := cfg.ZonesFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		panic("zone file required: pass a path or set ZONES_FILE")
	}

	items, err := zones.LoadFile(path)
	if err != nil {
		log.Error("failed to load zone file", "path", path, "error", err)
		panic("failed to load zone file: " + err.Error())
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := zones.NewRepository(pool).Upsert(ctx, items); err != nil {
		log.Error("failed to import zones", "error", err)
		panic("failed to import zones: " + err.Error())
	}

	log.Info("zones imported", "path", path, "count", len(items))
}
