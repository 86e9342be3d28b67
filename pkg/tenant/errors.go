package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches a lookup.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantConflict is returned when a creation collides with an
	// existing tenant name or subdomain.
	ErrTenantConflict = errors.New("tenant name or subdomain already taken")

	// ErrInactiveTenant is returned when a resolved tenant is deactivated.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrInvalidIdentifier is returned when a request carries a malformed
	// tenant identifier.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrInvalidSchemaName is returned when a subdomain cannot be derived
	// into a safe schema identifier.
	ErrInvalidSchemaName = errors.New("invalid tenant schema name")

	// ErrNoTenantInContext is returned when tenant context is read before
	// the resolution middleware populated it. This is a programming error
	// in the caller, not a runtime condition to recover from.
	ErrNoTenantInContext = errors.New("no tenant in context")
)
