// Package scope keeps expensive request-scoped collaborators alive across
// requests that share a tenant. Instead of rebuilding a tenant's dependency
// subtree on every request, requests group by tenant ID and reuse one
// long-lived instance; requests without a resolvable tenant fall back to a
// fresh per-request instance.
package scope

import (
	"context"
	"sync"
)

// Group maps a grouping key (tenant ID) to one shared instance of T.
// Construction is single-flight per key. The map is bounded by an LRU limit
// rather than growing forever: tenants that stop appearing eventually age
// out and their subtree is released.
type Group[T any] struct {
	build   func(ctx context.Context, key string) (T, error)
	release func(T)
	maxSize int

	mu      sync.Mutex
	entries map[string]*entry[T]
	order   []string
}

type entry[T any] struct {
	ready chan struct{}
	value T
	err   error
}

// DefaultMaxSize bounds a Group when no explicit limit is given.
const DefaultMaxSize = 1000

// NewGroup creates a group building instances with build. release, if not
// nil, runs when an instance is evicted. Eviction does not wait for callers
// that already hold the instance, so a release func must either tolerate
// in-flight use (a graceful drain, as pool Close does) or be nil for
// instances that borrow shared resources. maxSize <= 0 selects
// DefaultMaxSize.
func NewGroup[T any](maxSize int, build func(ctx context.Context, key string) (T, error), release func(T)) *Group[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Group[T]{
		build:   build,
		release: release,
		maxSize: maxSize,
		entries: make(map[string]*entry[T]),
	}
}

// Get returns the shared instance for key, building it on first demand.
// Concurrent first calls for one key result in a single build. A build
// failure is not cached; the next Get retries.
func (g *Group[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	g.mu.Lock()
	if e, ok := g.entries[key]; ok {
		g.touch(key)
		g.mu.Unlock()
		select {
		case <-e.ready:
			return e.value, e.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	g.evictOverflow()
	e := &entry[T]{ready: make(chan struct{})}
	g.entries[key] = e
	g.order = append(g.order, key)
	g.mu.Unlock()

	e.value, e.err = g.build(ctx, key)
	if e.err != nil {
		g.mu.Lock()
		if g.entries[key] == e {
			delete(g.entries, key)
			g.drop(key)
		}
		g.mu.Unlock()
	}
	close(e.ready)

	return e.value, e.err
}

// Fresh builds a throwaway instance outside the group, for requests that
// carry no grouping key. The caller owns its lifecycle.
func (g *Group[T]) Fresh(ctx context.Context, key string) (T, error) {
	return g.build(ctx, key)
}

// Len reports the number of live grouped instances.
func (g *Group[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Close releases every grouped instance.
func (g *Group[T]) Close() {
	g.mu.Lock()
	entries := g.entries
	g.entries = make(map[string]*entry[T])
	g.order = nil
	g.mu.Unlock()

	for _, e := range entries {
		<-e.ready
		if e.err == nil && g.release != nil {
			g.release(e.value)
		}
	}
}

// evictOverflow makes room for one more entry. Caller holds g.mu.
func (g *Group[T]) evictOverflow() {
	for len(g.entries) >= g.maxSize && len(g.order) > 0 {
		oldest := g.order[0]
		g.order = g.order[1:]
		e, ok := g.entries[oldest]
		if !ok {
			continue
		}
		delete(g.entries, oldest)
		go func() {
			<-e.ready
			if e.err == nil && g.release != nil {
				g.release(e.value)
			}
		}()
	}
}

// touch marks key most recently used. Caller holds g.mu.
func (g *Group[T]) touch(key string) {
	g.drop(key)
	g.order = append(g.order, key)
}

// drop removes key from the LRU order. Caller holds g.mu.
func (g *Group[T]) drop(key string) {
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}
