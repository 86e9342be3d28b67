package tenantdb

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is a generic accessor for one entity table inside one tenant
// schema. It is the only sanctioned path from business logic to tenant data:
// services resolve a repository instead of touching Pools directly, so
// schema scoping stays in one place.
//
// Queries are built with squirrel and never name the schema — the underlying
// pool's search path already pins it.
type Repository struct {
	pool  *pgxpool.Pool
	table string
	sb    sq.StatementBuilderType
}

// Repository returns a repository for the given entity table in schema,
// lazily initializing the schema's pool. Resolution fails with
// *SchemaNotFoundError if the schema was never provisioned.
func (p *Pools) Repository(ctx context.Context, schema, table string) (*Repository, error) {
	pool, err := p.Get(ctx, schema)
	if err != nil {
		return nil, err
	}
	return &Repository{
		pool:  pool,
		table: table,
		sb:    sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Table returns the entity table this repository is bound to.
func (r *Repository) Table() string { return r.table }

// Select starts a SELECT against the entity table.
func (r *Repository) Select(columns ...string) sq.SelectBuilder {
	return r.sb.Select(columns...).From(r.table)
}

// Insert starts an INSERT into the entity table.
func (r *Repository) Insert() sq.InsertBuilder {
	return r.sb.Insert(r.table)
}

// Update starts an UPDATE of the entity table.
func (r *Repository) Update() sq.UpdateBuilder {
	return r.sb.Update(r.table)
}

// Delete starts a DELETE from the entity table.
func (r *Repository) Delete() sq.DeleteBuilder {
	return r.sb.Delete(r.table)
}

// Query runs a built statement and returns its rows.
func (r *Repository) Query(ctx context.Context, b sq.Sqlizer) (pgx.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return r.pool.Query(ctx, query, args...)
}

// QueryRow runs a built statement expected to return a single row.
func (r *Repository) QueryRow(ctx context.Context, b sq.Sqlizer) (pgx.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return r.pool.QueryRow(ctx, query, args...), nil
}

// Exec runs a built statement without reading rows back.
func (r *Repository) Exec(ctx context.Context, b sq.Sqlizer) (pgconn.CommandTag, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return r.pool.Exec(ctx, query, args...)
}

// Count returns the number of rows matching pred (a squirrel predicate,
// e.g. sq.Eq{"active": true}), or all rows when pred is nil.
func (r *Repository) Count(ctx context.Context, pred any) (int64, error) {
	b := r.sb.Select("count(*)").From(r.table)
	if pred != nil {
		b = b.Where(pred)
	}
	row, err := r.QueryRow(ctx, b)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
