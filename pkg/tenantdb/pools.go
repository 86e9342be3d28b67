package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pools owns every schema-scoped connection pool in the process. At most one
// pool exists per schema name: concurrent first-time requests for the same
// schema share a single factory invocation, while requests for different
// schemas never contend with each other.
//
// Pools is constructed once at startup and passed to whatever needs tenant
// data; nothing else may create or close per-tenant pools.
type Pools struct {
	cache *keyedCache[*pgxpool.Pool]
}

// NewPools creates the process-wide pool cache backed by factory.
func NewPools(factory *Factory) *Pools {
	return &Pools{
		cache: newKeyedCache(factory.Open, func(p *pgxpool.Pool) { p.Close() }),
	}
}

// Get returns the pool for schema, building it lazily on first use. A failed
// construction surfaces to the caller that triggered it and is not cached:
// the next Get retries from scratch.
func (p *Pools) Get(ctx context.Context, schema string) (*pgxpool.Pool, error) {
	return p.cache.get(ctx, schema)
}

// Evict closes and forgets the pool for schema, e.g. after a tenant is
// torn down. A later Get would rebuild it.
func (p *Pools) Evict(schema string) {
	p.cache.remove(schema)
}

// Len reports how many schemas currently hold a pool.
func (p *Pools) Len() int {
	return p.cache.size()
}

// Close drains and closes every cached pool and rejects further Gets.
// Call once during orderly shutdown.
func (p *Pools) Close() {
	p.cache.close()
}
