package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ReportCache keeps the latest report per login session.
type ReportCache interface {
	Get(ctx context.Context, sessionID string) (*Report, error)
	Set(ctx context.Context, sessionID string, report Report) error
}

const cacheKeyPrefix = "reconcile:session:"

// RedisCache shares reports between API instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) (*Report, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached report: %w", err)
	}

	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

func (c *RedisCache) Set(ctx context.Context, sessionID string, report Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+sessionID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached report: %w", err)
	}
	return nil
}

// MemoryCache is used when Redis is not configured.
type MemoryCache struct {
	items *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{items: cache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, sessionID string) (*Report, error) {
	value, ok := c.items.Get(sessionID)
	if !ok {
		return nil, nil
	}
	report := value.(Report)
	return &report, nil
}

func (c *MemoryCache) Set(_ context.Context, sessionID string, report Report) error {
	c.items.SetDefault(sessionID, report)
	return nil
}
