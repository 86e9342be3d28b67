package tenantdb

// Step is one idempotent DDL statement in a tenant schema's baseline.
// Steps run in version order with the target schema as the transaction-local
// search path, and applied versions are recorded in the schema's
// tenant_schema_version table so existing tenants can be migrated forward
// when the baseline grows.
type Step struct {
	Version int64
	Name    string
	SQL     string
}

// BaselineSteps is the current schema baseline every tenant starts from.
// Append new steps with higher versions; never edit or reorder shipped ones.
func BaselineSteps() []Step {
	return []Step{
		{
			Version: 1,
			Name:    "roles",
			SQL: `CREATE TABLE IF NOT EXISTS roles (
				id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
				name text NOT NULL UNIQUE,
				permissions text[] NOT NULL DEFAULT '{}',
				created_at timestamptz NOT NULL DEFAULT now()
			)`,
		},
		{
			Version: 2,
			Name:    "users",
			SQL: `CREATE TABLE IF NOT EXISTS users (
				id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
				email text NOT NULL UNIQUE,
				full_name text NOT NULL DEFAULT '',
				role_id uuid REFERENCES roles (id),
				active boolean NOT NULL DEFAULT TRUE,
				created_at timestamptz NOT NULL DEFAULT now(),
				updated_at timestamptz NOT NULL DEFAULT now()
			)`,
		},
		{
			Version: 3,
			Name:    "users_email_idx",
			SQL:     `CREATE INDEX IF NOT EXISTS users_active_idx ON users (active)`,
		},
	}
}
