package tenantdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Factory builds connection pools bound to a single tenant schema. Every
// query on a pool it returns runs with that schema as the active search
// path, so repositories never name the schema explicitly.
//
// The factory only establishes connections; it never creates or mutates
// schema contents. Provisioning is the Provisioner's job.
type Factory struct {
	cfg pg.Config
}

// NewFactory creates a factory for the shared cluster described by cfg.
func NewFactory(cfg pg.Config) *Factory {
	return &Factory{cfg: cfg}
}

// Open initializes a pool scoped to schema. When the schema does not
// physically exist, all partially initialized resources are released and the
// typed *SchemaNotFoundError is returned so callers can distinguish metadata
// drift from an unreachable database. Any other failure propagates as is.
func (f *Factory) Open(ctx context.Context, schema string) (*pgxpool.Pool, error) {
	if !tenant.ValidSchemaName(schema) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchemaName, schema)
	}

	poolCfg, err := pg.ParseConfig(f.cfg)
	if err != nil {
		return nil, err
	}
	poolCfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		if pg.IsInvalidSchemaError(err) {
			return nil, &SchemaNotFoundError{Schema: schema}
		}
		return nil, err
	}

	// A missing schema does not fail search_path assignment, so probe the
	// catalog explicitly before handing the pool out.
	var exists bool
	err = pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)`,
		schema).Scan(&exists)
	if err != nil {
		pool.Close()
		if pg.IsInvalidSchemaError(err) {
			return nil, &SchemaNotFoundError{Schema: schema}
		}
		return nil, err
	}
	if !exists {
		pool.Close()
		return nil, &SchemaNotFoundError{Schema: schema}
	}

	return pool, nil
}
