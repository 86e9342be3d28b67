package tenantlimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantlimit"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tenantRequest := func(id uuid.UUID) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(tenant.WithContext(req.Context(), &tenant.Tenant{
			ID: id, Subdomain: "acme", SchemaName: "acme", Active: true,
		}))
	}

	t.Run("enforces the tenant budget", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, tenantlimit.Config{
			Capacity: 2, RefillRate: 2, RefillInterval: time.Hour,
		})
		handler := tenantlimit.Middleware(limiter)(okHandler)
		id := uuid.New()

		for range 2 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tenantRequest(id))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tenantRequest(id))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("exposes rate limit headers", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, tenantlimit.Config{
			Capacity: 10, RefillRate: 10, RefillInterval: time.Hour,
		})
		handler := tenantlimit.Middleware(limiter)(okHandler)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tenantRequest(uuid.New()))

		assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("one tenant cannot exhaust another", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, tenantlimit.Config{
			Capacity: 1, RefillRate: 1, RefillInterval: time.Hour,
		})
		handler := tenantlimit.Middleware(limiter)(okHandler)

		noisy := uuid.New()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tenantRequest(noisy))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, tenantRequest(noisy))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, tenantRequest(uuid.New()))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("requests without tenant context pass through", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, tenantlimit.Config{
			Capacity: 1, RefillRate: 1, RefillInterval: time.Hour,
		})
		handler := tenantlimit.Middleware(limiter)(okHandler)

		for range 5 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	})
}
