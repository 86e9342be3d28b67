package tenant

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Middleware resolves the tenant for each inbound request and stores it in
// the request context.
//
// Per request: extract a candidate identifier via the resolver, load the
// tenant through the cache or the registry, reject unknown or inactive
// tenants before any business logic runs, and populate the context carrier
// on success. Requests without any candidate identifier pass through
// untouched — platform-level routes simply never read tenant context.
func Middleware(resolve Resolver, store Store, opts ...Option) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		cache:        NewNoopCache(),
		cacheTTL:     5 * time.Minute,
		errorHandler: DefaultErrorHandler,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identifier, err := resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if identifier == "" {
				// No tenant source on this request; proceed without context.
				next.ServeHTTP(w, r)
				return
			}

			t, ok := cfg.cache.Get(r.Context(), identifier)
			if !ok {
				t, err = store.FindByIdentifier(r.Context(), identifier)
				if err != nil {
					cfg.logger.DebugContext(r.Context(), "tenant resolution failed",
						"identifier", identifier, "error", err)
					cfg.errorHandler(w, r, err)
					return
				}
				cfg.cache.Set(r.Context(), identifier, t, cfg.cacheTTL)
			}

			// Rejection happens before the context carrier is populated, so
			// an inactive tenant can never leak into downstream handlers.
			if !t.Active {
				cfg.errorHandler(w, r, ErrInactiveTenant)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), t)))
		})
	}
}

// RequireTenant guards routes that cannot run without tenant context. Mount
// it after Middleware on tenant-scoped subrouters.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := FromContext(r.Context()); err != nil {
				// Reaching here without tenant context is a wiring defect,
				// not a client rejection; keep ErrNoTenantInContext so the
				// handler renders it as a server error.
				errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
