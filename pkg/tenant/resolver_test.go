package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func requestWithRouteParam(param, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPathResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.NewPathResolver("tenant")

	t.Run("extracts route parameter", func(t *testing.T) {
		t.Parallel()

		id, err := resolve(requestWithRouteParam("tenant", "acme"))
		require.NoError(t, err)
		assert.Equal(t, "acme", id)
	})

	t.Run("no parameter yields empty", func(t *testing.T) {
		t.Parallel()

		id, err := resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("malformed parameter errors", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(requestWithRouteParam("tenant", "acme schema;drop"))
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})
}

func TestHeaderResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.NewHeaderResolver("X-Tenant-ID")

	t.Run("extracts header value", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "globex")

		id, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "globex", id)
	})

	t.Run("accepts uuid identifiers", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "0196b1f4-7a88-7bbd-8f3e-1c9e8e2d4f5a")

		id, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "0196b1f4-7a88-7bbd-8f3e-1c9e8e2d4f5a", id)
	})

	t.Run("missing header yields empty", func(t *testing.T) {
		t.Parallel()

		id, err := resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("malformed header errors", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "not valid!!")

		_, err := resolve(req)
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})
}

func TestSubdomainResolver(t *testing.T) {
	t.Parallel()

	resolve := tenant.NewSubdomainResolver(".example.com")

	tests := []struct {
		name string
		host string
		want string
	}{
		{name: "subdomain", host: "acme.example.com", want: "acme"},
		{name: "subdomain with port", host: "acme.example.com:8080", want: "acme"},
		{name: "bare domain", host: "example.com", want: ""},
		{name: "www is not a tenant", host: "www.example.com", want: ""},
		{name: "unrelated host", host: "other.org", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host

			id, err := resolve(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestClaimResolver(t *testing.T) {
	t.Parallel()

	type claimKey struct{}
	fromContext := func(ctx context.Context) (string, bool) {
		id, ok := ctx.Value(claimKey{}).(string)
		return id, ok && id != ""
	}
	resolve := tenant.NewClaimResolver(fromContext)

	t.Run("reads tenant claim", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), claimKey{}, "acme"))

		id, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "acme", id)
	})

	t.Run("anonymous request yields empty", func(t *testing.T) {
		t.Parallel()

		id, err := resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Empty(t, id)
	})
}

func TestCompositeResolver(t *testing.T) {
	t.Parallel()

	t.Run("path wins over header over claim", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(
			tenant.NewPathResolver("tenant"),
			tenant.NewHeaderResolver("X-Tenant-ID"),
		)

		req := requestWithRouteParam("tenant", "from-path")
		req.Header.Set("X-Tenant-ID", "from-header")

		id, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "from-path", id)
	})

	t.Run("falls through empty sources", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(
			tenant.NewPathResolver("tenant"),
			tenant.NewHeaderResolver("X-Tenant-ID"),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "from-header")

		id, err := resolve(req)
		require.NoError(t, err)
		assert.Equal(t, "from-header", id)
	})

	t.Run("no source yields empty without error", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(
			tenant.NewHeaderResolver("X-Tenant-ID"),
		)

		id, err := resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("collects source errors", func(t *testing.T) {
		t.Parallel()

		resolve := tenant.NewCompositeResolver(
			tenant.NewHeaderResolver("X-Tenant-ID"),
		)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "bad value!!")

		_, err := resolve(req)
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})
}
