// Package core holds the small HTTP request/response vocabulary shared by
// the service modules: JSON rendering, request decoding, and the mapping
// from domain errors to HTTP statuses.
package core

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// JSONResponse is the envelope every module handler renders.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries a machine-readable code alongside the message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON renders v inside the standard envelope.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Data: v})
}

// Error renders err with the status its domain meaning maps to. Unknown
// errors render as an opaque 500 so internals never leak to clients.
func Error(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	msg := "internal server error"

	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		status, code, msg = http.StatusNotFound, "tenant_not_found", "tenant not found"
	case errors.Is(err, tenant.ErrTenantConflict):
		status, code, msg = http.StatusConflict, "tenant_conflict", "tenant name or subdomain already taken"
	case errors.Is(err, tenant.ErrInactiveTenant):
		status, code, msg = http.StatusForbidden, "tenant_inactive", "tenant is inactive"
	case errors.Is(err, tenant.ErrInvalidIdentifier), errors.Is(err, tenant.ErrInvalidSchemaName):
		status, code, msg = http.StatusBadRequest, "invalid_identifier", err.Error()
	case errors.Is(err, tenant.ErrNoTenantInContext):
		// Contract violation in our own wiring, not a client problem.
		status, code, msg = http.StatusInternalServerError, "tenant_context_missing", "tenant context missing"
	case errors.Is(err, tenantdb.ErrSchemaNotFound):
		status, code, msg = http.StatusConflict, "schema_not_provisioned", "tenant schema is not provisioned"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Error: &ErrorDetail{Code: code, Message: msg}})
}

// Decode reads the request body as JSON into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
