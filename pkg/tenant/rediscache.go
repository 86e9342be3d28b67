package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tenant:meta:"

// redisCache backs the tenant metadata cache with Redis so that every
// replica of the service shares one view of resolved tenants and a
// deactivation propagates across the fleet within one TTL.
type redisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a connected Redis client as a tenant metadata cache.
// The client lifecycle stays with the caller; Close here is a no-op.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var t Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		// Corrupt entry: drop it so the next resolution repopulates.
		c.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return &t, true
}

func (c *redisCache) Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKeyPrefix+key, raw, ttl)
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	c.client.Del(ctx, redisKeyPrefix+key)
}

func (c *redisCache) Close() error { return nil }
