// Package pg wraps the pgx/v5 driver with the small amount of plumbing the
// rest of the project needs: pool construction with startup retries, goose
// migrations for the control-plane schema, a health check closure, and
// SQLSTATE classification helpers.
//
// The classification helpers matter more here than in a single-schema
// application. Schema-per-tenant routing has to distinguish "this schema does
// not exist" (IsInvalidSchemaError) from "the database is down", because the
// former is a control-plane/storage drift signal while the latter is a plain
// outage. See the tenantdb package for how these feed typed errors.
package pg
