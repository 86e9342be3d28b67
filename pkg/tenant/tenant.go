package tenant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant is the control-plane record of a customer organization. SchemaName
// names the tenant's isolated namespace inside the shared cluster; it is
// derived from the subdomain at creation time and never changes or gets
// reused afterwards, even if the tenant is deleted.
type Tenant struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Subdomain       string     `json:"subdomain"`
	SchemaName      string     `json:"schema_name"`
	Active          bool       `json:"active"`
	MaxUsers        int        `json:"max_users"`
	Modules         []string   `json:"modules"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateParams carries the fields needed to register a new tenant.
// SchemaName is not part of the input: it is always derived from Subdomain.
type CreateParams struct {
	Name            string
	Subdomain       string
	MaxUsers        int
	Modules         []string
	SubscriptionEnd *time.Time
}

// UpdateParams carries the mutable tenant fields. Nil members are left
// untouched. Subdomain and schema name are immutable.
type UpdateParams struct {
	Name            *string
	MaxUsers        *int
	Modules         []string
	SubscriptionEnd *time.Time
}

// Store is the tenant registry. Implementations always operate on the
// control-plane schema, never on a tenant schema.
type Store interface {
	// FindByID returns ErrTenantNotFound if the id is unknown.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindBySubdomain returns ErrTenantNotFound if the subdomain is unknown.
	// Lookup is case-insensitive.
	FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// FindByName returns ErrTenantNotFound if the name is unknown.
	FindByName(ctx context.Context, name string) (*Tenant, error)

	// FindByIdentifier resolves either a tenant UUID or a subdomain,
	// whichever the identifier parses as.
	FindByIdentifier(ctx context.Context, identifier string) (*Tenant, error)

	// Create inserts a new registry row. Returns ErrTenantConflict when the
	// name or subdomain is already taken.
	Create(ctx context.Context, params CreateParams) (*Tenant, error)

	// Update applies params to an existing tenant.
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Tenant, error)

	// Deactivate marks the tenant inactive. The registry row and the schema
	// stay in place so the tenant can be restored.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// Restore reactivates a previously deactivated tenant.
	Restore(ctx context.Context, id uuid.UUID) error
}

// Schema names double as SQL identifiers, so the allowed alphabet is strict:
// lower-case alphanumerics and underscores, starting with a letter, within
// the PostgreSQL identifier length limit.
const maxSchemaNameLength = 63

var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SchemaNameFromSubdomain derives the immutable schema name for a subdomain.
// Returns ErrInvalidSchemaName when the subdomain cannot be turned into a
// safe SQL identifier.
func SchemaNameFromSubdomain(subdomain string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(subdomain))
	name = strings.ReplaceAll(name, "-", "_")
	if !ValidSchemaName(name) {
		return "", ErrInvalidSchemaName
	}
	return name, nil
}

// ValidSchemaName reports whether name is safe to use as a schema identifier.
func ValidSchemaName(name string) bool {
	return name != "" && len(name) <= maxSchemaNameLength && schemaNamePattern.MatchString(name)
}
