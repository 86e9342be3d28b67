// Package authn verifies bearer tokens and exposes the authenticated
// identity through the request context. Token issuance lives elsewhere; this
// package only needs enough verification to trust the embedded tenant claim
// that tenant resolution consumes as its lowest-precedence source.
package authn

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Config is the env-driven token verification configuration.
type Config struct {
	Secret string `env:"AUTH_JWT_SECRET,required"`
}

// Claims is the verified identity carried by a token. TenantID holds the
// subdomain or tenant UUID the identity belongs to; platform-level accounts
// leave it empty.
type Claims struct {
	UserID   string `json:"uid,omitempty"`
	TenantID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

type contextKey struct{}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// ClaimsFromContext returns the verified claims, if the request carried a
// valid token.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok && claims != nil
}

// TenantIDFromContext returns the tenant claim of the authenticated
// identity. Shaped to plug straight into tenant.NewClaimResolver.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.TenantID == "" {
		return "", false
	}
	return claims.TenantID, true
}

// Verifier parses and verifies bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for HMAC-signed tokens.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret)}
}

// Verify parses raw and returns its claims if the signature and standard
// claims check out.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// Middleware verifies the Authorization header when present and stores the
// claims in the request context. Requests without a bearer token pass
// through anonymous; use Require to guard routes that need an identity.
func Middleware(verifier *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := verifier.Verify(raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Require rejects requests that reached this point without verified claims.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
