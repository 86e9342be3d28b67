package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithContext stores the resolved tenant in ctx. Called once per request by
// the resolution middleware; nothing else should set tenant context.
func WithContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant resolved for this request. It fails with
// ErrNoTenantInContext when resolution never ran: downstream code must not
// silently fall back to a default schema.
func FromContext(ctx context.Context) (*Tenant, error) {
	t, ok := ctx.Value(contextKey{}).(*Tenant)
	if !ok || t == nil {
		return nil, ErrNoTenantInContext
	}
	return t, nil
}

// IDFromContext returns the resolved tenant's ID or ErrNoTenantInContext.
func IDFromContext(ctx context.Context) (uuid.UUID, error) {
	t, err := FromContext(ctx)
	if err != nil {
		return uuid.UUID{}, err
	}
	return t.ID, nil
}

// SchemaFromContext returns the resolved tenant's schema name or
// ErrNoTenantInContext.
func SchemaFromContext(ctx context.Context) (string, error) {
	t, err := FromContext(ctx)
	if err != nil {
		return "", err
	}
	return t.SchemaName, nil
}

// MustFromContext is FromContext for handlers that cannot run without a
// tenant. It panics on unset context, turning a contract violation into an
// immediate, visible failure.
func MustFromContext(ctx context.Context) *Tenant {
	t, err := FromContext(ctx)
	if err != nil {
		panic("tenant: context accessed before resolution middleware ran")
	}
	return t
}

// LoggerExtractor exposes the tenant ID as a log attribute on every record
// written within a resolved request.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, err := IDFromContext(ctx); err == nil {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
