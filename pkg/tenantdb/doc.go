// Package tenantdb manages the data-plane side of multi-tenancy: one
// isolated, schema-scoped connection pool per tenant, provisioned lazily and
// owned centrally.
//
// # Lifecycle
//
// A Factory builds pools whose search path is pinned to a single schema.
// Pools caches them with single-flight semantics: under any interleaving of
// concurrent requests, a schema's pool is constructed exactly once, and
// construction failures are never cached. Pools are destroyed only by
// Pools.Close during orderly shutdown (or a targeted Evict).
//
// The Provisioner is deliberately decoupled from the pool cache. Creating a
// tenant commits the registry row and the schema DDL as one transaction, but
// leaves the pool cache untouched; the first real request for the tenant
// takes the lazy factory path.
//
// # Errors
//
// A registry row whose physical schema is missing surfaces as the typed
// *SchemaNotFoundError (matchable via errors.Is with ErrSchemaNotFound)
// rather than a generic database error, so operators and cleanup flows can
// detect control-plane/storage drift.
package tenantdb
