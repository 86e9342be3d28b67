package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, letting the
// same store run standalone or inside a provisioning transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore is the PostgreSQL tenant registry. All queries are fully qualified
// against the control-plane schema so the store works regardless of the
// connection's search path.
type PGStore struct {
	db DBTX
}

// registryTable is the fully qualified control-plane tenants table.
const registryTable = "public.tenants"

const tenantColumns = `id, name, subdomain, schema_name, active, max_users, modules, subscription_end, created_at, updated_at`

// NewPGStore creates a registry store over db, which may be a pool or an
// open transaction.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, tenantColumns, registryTable)
	return s.scanOne(s.db.QueryRow(ctx, query, id))
}

func (s *PGStore) FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE subdomain = lower($1)`, tenantColumns, registryTable)
	return s.scanOne(s.db.QueryRow(ctx, query, strings.TrimSpace(subdomain)))
}

func (s *PGStore) FindByName(ctx context.Context, name string) (*Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, tenantColumns, registryTable)
	return s.scanOne(s.db.QueryRow(ctx, query, name))
}

func (s *PGStore) FindByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return s.FindByID(ctx, id)
	}
	return s.FindBySubdomain(ctx, identifier)
}

func (s *PGStore) Create(ctx context.Context, params CreateParams) (*Tenant, error) {
	schemaName, err := SchemaNameFromSubdomain(params.Subdomain)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, subdomain, schema_name, active, max_users, modules, subscription_end)
		VALUES ($1, $2, lower($3), $4, TRUE, $5, $6, $7)
		RETURNING %s`, registryTable, tenantColumns)

	row := s.db.QueryRow(ctx, query,
		uuid.New(), params.Name, strings.TrimSpace(params.Subdomain), schemaName,
		params.MaxUsers, params.Modules, params.SubscriptionEnd)

	t, err := s.scanOne(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrTenantConflict
		}
		return nil, err
	}
	return t, nil
}

func (s *PGStore) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Tenant, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			name = COALESCE($2, name),
			max_users = COALESCE($3, max_users),
			modules = COALESCE($4, modules),
			subscription_end = COALESCE($5, subscription_end),
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, registryTable, tenantColumns)

	t, err := s.scanOne(s.db.QueryRow(ctx, query,
		id, params.Name, params.MaxUsers, params.Modules, params.SubscriptionEnd))
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return nil, ErrTenantConflict
		}
		return nil, err
	}
	return t, nil
}

func (s *PGStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

func (s *PGStore) Restore(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

func (s *PGStore) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := fmt.Sprintf(`UPDATE %s SET active = $2, updated_at = now() WHERE id = $1`, registryTable)
	tag, err := s.db.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *PGStore) scanOne(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &t.SchemaName, &t.Active,
		&t.MaxUsers, &t.Modules, &t.SubscriptionEnd, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}
