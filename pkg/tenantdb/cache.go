package tenantdb

import (
	"context"
	"sync"
)

// cacheEntry is an in-progress or completed construction for one key.
// The ready channel closes once pool and err are final.
type cacheEntry[H any] struct {
	ready chan struct{}
	value H
	err   error
}

// keyedCache is a single-flight construction cache: at most one build runs
// per key at a time, and a successful build is reused for the cache's whole
// lifetime. Builds for distinct keys proceed fully in parallel; the mutex
// only guards map access, never construction itself.
//
// A failed build is forgotten before its waiters are released, so the next
// Get for that key starts construction from scratch instead of replaying a
// cached error.
type keyedCache[H any] struct {
	build    func(ctx context.Context, key string) (H, error)
	teardown func(H)

	mu      sync.Mutex
	entries map[string]*cacheEntry[H]
	closed  bool
}

func newKeyedCache[H any](build func(ctx context.Context, key string) (H, error), teardown func(H)) *keyedCache[H] {
	return &keyedCache[H]{
		build:    build,
		teardown: teardown,
		entries:  make(map[string]*cacheEntry[H]),
	}
}

// get returns the cached value for key, building it on first demand. All
// concurrent first callers share one build; losers block on the winner's
// ready latch. A caller whose context ends while waiting gives up without
// affecting the build in flight.
func (c *keyedCache[H]) get(ctx context.Context, key string) (H, error) {
	var zero H

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrPoolsClosed
	}
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-e.ready:
			return e.value, e.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	e := &cacheEntry[H]{ready: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.value, e.err = c.build(ctx, key)
	if e.err != nil {
		c.mu.Lock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}
	close(e.ready)

	return e.value, e.err
}

// remove drops the entry for key and tears its value down, if present.
func (c *keyedCache[H]) remove(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	<-e.ready
	if e.err == nil && c.teardown != nil {
		c.teardown(e.value)
	}
}

// close drains every cached value and rejects future gets. This is the only
// place cached values are destroyed apart from explicit remove calls.
func (c *keyedCache[H]) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*cacheEntry[H])
	c.mu.Unlock()

	for _, e := range entries {
		<-e.ready
		if e.err == nil && c.teardown != nil {
			c.teardown(e.value)
		}
	}
}

// size reports the number of completed or in-flight entries.
func (c *keyedCache[H]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
