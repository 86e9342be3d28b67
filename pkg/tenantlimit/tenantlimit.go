// Package tenantlimit applies per-tenant request budgets with a token
// bucket. Keys are tenant IDs, so one noisy tenant exhausts its own bucket
// without starving the rest. State lives in a pluggable Store: in-memory for
// a single node, Redis for a fleet.
package tenantlimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig indicates a non-positive capacity, rate, or interval.
	ErrInvalidConfig = errors.New("invalid rate limit configuration")

	// ErrInvalidTokenCount indicates a non-positive token request.
	ErrInvalidTokenCount = errors.New("invalid token count")
)

// Config defines one tenant bucket: Capacity is the burst limit, RefillRate
// tokens are added every RefillInterval.
type Config struct {
	Capacity       int           `env:"TENANT_LIMIT_CAPACITY" envDefault:"100"`
	RefillRate     int           `env:"TENANT_LIMIT_REFILL_RATE" envDefault:"100"`
	RefillInterval time.Duration `env:"TENANT_LIMIT_REFILL_INTERVAL" envDefault:"1m"`
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the outcome of one budget check.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the request fit the budget.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long the tenant should wait before retrying.
// Zero when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store holds bucket state per tenant.
type Store interface {
	// ConsumeTokens takes tokens from the tenant's bucket, refilling first
	// based on elapsed time. A negative remaining count means the request
	// must be denied.
	ConsumeTokens(ctx context.Context, tenantID string, tokens int, cfg Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the tenant's bucket.
	Reset(ctx context.Context, tenantID string) error
}

// Limiter is a token bucket limiter over a Store.
type Limiter struct {
	store Store
	cfg   Config
}

// NewLimiter creates a limiter applying cfg to every tenant.
func NewLimiter(store Store, cfg Config) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, cfg: cfg}, nil
}

// Allow consumes one token from the tenant's bucket.
func (l *Limiter) Allow(ctx context.Context, tenantID string) (*Result, error) {
	return l.AllowN(ctx, tenantID, 1)
}

// AllowN consumes n tokens from the tenant's bucket.
func (l *Limiter) AllowN(ctx context.Context, tenantID string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	remaining, resetAt, err := l.store.ConsumeTokens(ctx, tenantID, n, l.cfg)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: l.cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

// Reset clears the tenant's bucket, e.g. after a plan upgrade.
func (l *Limiter) Reset(ctx context.Context, tenantID string) error {
	return l.store.Reset(ctx, tenantID)
}
