package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ErrorHandler turns a resolution failure into an HTTP response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	cache        Cache
	cacheTTL     time.Duration
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// Option configures the resolution middleware.
type Option func(*middlewareConfig)

// WithCache sets the tenant metadata cache. Defaults to a process-local
// in-memory cache; pass NewRedisCache for a fleet-shared one or
// NewNoopCache to disable caching.
func WithCache(cache Cache) Option {
	return func(c *middlewareConfig) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithCacheTTL sets how long resolved tenants stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *middlewareConfig) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithErrorHandler overrides how resolution failures are rendered.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths lists path prefixes that bypass resolution entirely,
// e.g. health and platform-admin endpoints.
func WithSkipPaths(paths ...string) Option {
	return func(c *middlewareConfig) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithLogger sets the middleware logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *middlewareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// DefaultErrorHandler maps resolution failures onto HTTP statuses. Inactive
// and unknown tenants are rejected alike with 403 so probing requests cannot
// distinguish the two cases.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrInactiveTenant):
		http.Error(w, "invalid tenant", http.StatusForbidden)
	case errors.Is(err, ErrInvalidIdentifier):
		http.Error(w, "invalid tenant identifier", http.StatusBadRequest)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
