// Package tenant implements the control-plane side of multi-tenancy: the
// tenant registry, request-time tenant resolution, and the context carrier
// that propagates the resolved identity through a request.
//
// # Architecture
//
// Three pieces cooperate per request:
//
//  1. Resolvers extract a candidate identifier from the request (path
//     parameter, header, subdomain, or an authenticated identity claim).
//  2. The Store validates the identifier against the registry; only active
//     tenants resolve.
//  3. Middleware populates the context carrier with the resolved tenant,
//     which downstream code reads with FromContext and friends.
//
// The context accessors fail with ErrNoTenantInContext when read before the
// middleware ran. This is deliberate: a request that reaches tenant-scoped
// code without a resolved tenant is a wiring bug, and defaulting to any
// schema would silently break isolation.
//
// Resolved registry rows can be cached between requests (in-memory or
// Redis-backed) with a TTL. The schema-scoped database pools are a separate
// concern with a process-long lifecycle; see the tenantdb package.
//
// # Usage
//
//	store := tenant.NewPGStore(pool)
//	resolver := tenant.NewCompositeResolver(
//		tenant.NewPathResolver("tenant"),
//		tenant.NewHeaderResolver("X-Tenant-ID"),
//		tenant.NewClaimResolver(authn.TenantIDFromContext),
//	)
//	r.Use(tenant.Middleware(resolver, store,
//		tenant.WithCache(tenant.NewMemoryCache(ctx, 1000)),
//		tenant.WithCacheTTL(5*time.Minute),
//	))
package tenant
