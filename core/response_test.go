package core_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	core.JSON(rec, http.StatusCreated, map[string]string{"name": "acme"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var resp core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"name": "acme"}, resp.Data)
}

func TestError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"tenant not found", tenant.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
		{"tenant conflict", tenant.ErrTenantConflict, http.StatusConflict, "tenant_conflict"},
		{"inactive tenant", tenant.ErrInactiveTenant, http.StatusForbidden, "tenant_inactive"},
		{"invalid identifier", tenant.ErrInvalidIdentifier, http.StatusBadRequest, "invalid_identifier"},
		{"invalid schema name", tenant.ErrInvalidSchemaName, http.StatusBadRequest, "invalid_identifier"},
		{"missing tenant context", tenant.ErrNoTenantInContext, http.StatusInternalServerError, "tenant_context_missing"},
		{"schema not provisioned", tenantdb.ErrSchemaNotFound, http.StatusConflict, "schema_not_provisioned"},
		{"typed schema error", &tenantdb.SchemaNotFoundError{Schema: "acme"}, http.StatusConflict, "schema_not_provisioned"},
		{"wrapped domain error", fmt.Errorf("lookup: %w", tenant.ErrTenantNotFound), http.StatusNotFound, "tenant_not_found"},
		{"unknown error", errors.New("pg: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			core.Error(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp core.JSONResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}

	t.Run("unknown errors never leak details", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		core.Error(rec, errors.New("dial tcp 10.0.0.5:5432: connect: connection refused"))

		assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	})
}

func TestDecode(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name string `json:"name"`
	}

	t.Run("decodes valid body", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme"}`))
		var p payload
		require.NoError(t, core.Decode(req, &p))
		assert.Equal(t, "acme", p.Name)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme","extra":1}`))
		var p payload
		assert.Error(t, core.Decode(req, &p))
	})
}
