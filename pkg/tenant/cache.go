package tenant

import (
	"context"
	"sync"
	"time"
)

// Cache stores resolved tenant metadata between requests so the resolution
// middleware does not hit the registry on every call. This caches registry
// rows only; schema-scoped connection pools live in the tenantdb package and
// have a different lifecycle.
type Cache interface {
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, t *Tenant, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// DefaultCacheSize bounds the in-memory cache.
const DefaultCacheSize = 1000

type memoryItem struct {
	tenant    *Tenant
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	lru     []string
	maxSize int
	stop    chan struct{}
	done    chan struct{}
	closed  bool
}

// NewMemoryCache creates a bounded in-memory cache with TTL expiry and LRU
// eviction. A background goroutine sweeps expired entries until Close is
// called or ctx is cancelled.
func NewMemoryCache(ctx context.Context, maxSize int) Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	c := &memoryCache{
		items:   make(map[string]memoryItem),
		maxSize: maxSize,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.sweep(ctx)
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) (*Tenant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		delete(c.items, key)
		c.dropLRU(key)
		return nil, false
	}
	c.touchLRU(key)
	return item.tenant, true
}

func (c *memoryCache) Set(_ context.Context, key string, t *Tenant, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok && len(c.items) >= c.maxSize && len(c.lru) > 0 {
		evict := c.lru[0]
		c.lru = c.lru[1:]
		delete(c.items, evict)
	}
	c.items[key] = memoryItem{tenant: t, expiresAt: time.Now().Add(ttl)}
	c.touchLRU(key)
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.dropLRU(key)
}

func (c *memoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return nil
}

func (c *memoryCache) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *memoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			c.dropLRU(key)
		}
	}
}

func (c *memoryCache) touchLRU(key string) {
	c.dropLRU(key)
	c.lru = append(c.lru, key)
}

func (c *memoryCache) dropLRU(key string) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			return
		}
	}
}

// noopCache disables caching; every resolution hits the registry.
type noopCache struct{}

// NewNoopCache returns a cache that never stores anything.
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) (*Tenant, bool)              { return nil, false }
func (noopCache) Set(context.Context, string, *Tenant, time.Duration)      {}
func (noopCache) Delete(context.Context, string)                           {}
func (noopCache) Close() error                                             { return nil }
