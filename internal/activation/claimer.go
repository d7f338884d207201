package activation

import (
	"context"
	"sync"
	"time"

	"collection_portal_backend/platform/distlock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultClaimTTL = 2 * time.Minute

// Claimer guarantees at most one activation run per property at a time.
// A false ok means another run holds the property.
type Claimer interface {
	TryClaim(ctx context.Context, propertyID uuid.UUID) (release func(), ok bool, err error)
}

// LocalClaimer guards runs inside one process.
type LocalClaimer struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewLocalClaimer() *LocalClaimer {
	return &LocalClaimer{held: make(map[uuid.UUID]struct{})}
}

func (c *LocalClaimer) TryClaim(_ context.Context, propertyID uuid.UUID) (func(), bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.held[propertyID]; busy {
		return nil, false, nil
	}
	c.held[propertyID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.held, propertyID)
			c.mu.Unlock()
		})
	}, true, nil
}

// RedisClaimer adds a Redis lock on top of the local guard so the API and
// the scheduler worker never bill the same property concurrently.
type RedisClaimer struct {
	local  *LocalClaimer
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClaimer(client *redis.Client, ttl time.Duration) *RedisClaimer {
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &RedisClaimer{local: NewLocalClaimer(), client: client, ttl: ttl}
}

func (c *RedisClaimer) TryClaim(ctx context.Context, propertyID uuid.UUID) (func(), bool, error) {
	releaseLocal, ok, _ := c.local.TryClaim(ctx, propertyID)
	if !ok {
		return nil, false, nil
	}

	lock := distlock.NewRedisLock(c.client, "activation:"+propertyID.String(), c.ttl)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		releaseLocal()
		return nil, false, err
	}

	return func() {
		_ = lock.Release(context.WithoutCancel(ctx))
		releaseLocal()
	}, true, nil
}
