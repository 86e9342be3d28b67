package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Provisioner creates tenants: the registry row and the physical schema with
// its baseline structures commit as one transaction against the control
// plane. Either both exist afterwards or neither does.
//
// Provisioning never touches the per-tenant pool cache. The first real
// request for the new tenant exercises the factory path lazily.
type Provisioner struct {
	pool  *pgxpool.Pool
	steps []Step
	log   *slog.Logger
}

// NewProvisioner creates a provisioner over the control-plane pool. Steps
// default to BaselineSteps and are applied in version order.
func NewProvisioner(pool *pgxpool.Pool, steps []Step, log *slog.Logger) *Provisioner {
	if steps == nil {
		steps = BaselineSteps()
	}
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Provisioner{pool: pool, steps: sorted, log: log}
}

// CreateTenant registers a tenant and provisions its schema atomically.
//
// Conflicts with an existing name or subdomain fail with
// tenant.ErrTenantConflict before any DDL runs; a uniqueness violation
// raised by a racing request during commit maps to the same error. Any
// other DDL failure rolls the whole transaction back and surfaces as
// ErrProvisioningFailed.
func (p *Provisioner) CreateTenant(ctx context.Context, params tenant.CreateParams) (*tenant.Tenant, error) {
	schemaName, err := tenant.SchemaNameFromSubdomain(params.Subdomain)
	if err != nil {
		return nil, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	store := tenant.NewPGStore(tx)

	// Cheap pre-checks so obvious name or subdomain conflicts fail before
	// any DDL. The unique indexes remain the real guarantee under
	// concurrency.
	if _, err := store.FindBySubdomain(ctx, params.Subdomain); err == nil {
		return nil, tenant.ErrTenantConflict
	} else if !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, err
	}
	if _, err := store.FindByName(ctx, params.Name); err == nil {
		return nil, tenant.ErrTenantConflict
	} else if !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, err
	}

	created, err := store.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := p.applySchema(ctx, tx, schemaName); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, tenant.ErrTenantConflict
		}
		return nil, errors.Join(ErrProvisioningFailed, err)
	}

	p.log.InfoContext(ctx, "tenant provisioned",
		"tenant_id", created.ID, "schema", created.SchemaName)
	return created, nil
}

// MigrateSchema applies any baseline steps the given schema has not seen
// yet, in its own transaction. Used to roll existing tenants forward after
// the baseline grows, and to repair drift flagged by SchemaNotFoundError.
func (p *Provisioner) MigrateSchema(ctx context.Context, schemaName string) error {
	if !tenant.ValidSchemaName(schemaName) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, schemaName)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := p.applySchema(ctx, tx, schemaName); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrProvisioningFailed, err)
	}
	return nil
}

// applySchema creates the schema if needed and runs pending baseline steps
// inside the caller's transaction. The search path switch is transaction
// local, so the control-plane registry queries around it are unaffected.
func (p *Provisioner) applySchema(ctx context.Context, tx pgx.Tx, schemaName string) error {
	if !tenant.ValidSchemaName(schemaName) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, schemaName)
	}
	quoted := pgx.Identifier{schemaName}.Sanitize()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, quoted)); err != nil {
		return errors.Join(ErrProvisioningFailed, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL search_path TO %s`, quoted)); err != nil {
		return errors.Join(ErrProvisioningFailed, err)
	}

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS tenant_schema_version (
		version bigint PRIMARY KEY,
		name text NOT NULL,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`); err != nil {
		return errors.Join(ErrProvisioningFailed, err)
	}

	applied := make(map[int64]bool)
	rows, err := tx.Query(ctx, `SELECT version FROM tenant_schema_version`)
	if err != nil {
		return errors.Join(ErrProvisioningFailed, err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return errors.Join(ErrProvisioningFailed, err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Join(ErrProvisioningFailed, err)
	}

	for _, step := range p.steps {
		if applied[step.Version] {
			continue
		}
		if _, err := tx.Exec(ctx, step.SQL); err != nil {
			return errors.Join(ErrProvisioningFailed,
				fmt.Errorf("step %d (%s): %w", step.Version, step.Name, err))
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenant_schema_version (version, name) VALUES ($1, $2)`,
			step.Version, step.Name); err != nil {
			return errors.Join(ErrProvisioningFailed, err)
		}
	}

	return nil
}
