package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Resolver extracts a candidate tenant identifier from an HTTP request.
// An empty string means the request carries no identifier for this source;
// an error means the source was present but malformed.
type Resolver func(r *http.Request) (string, error)

// Identifier length and alphabet limits keep resolved values safe to use as
// cache keys and registry lookups before any validation against the store.
const maxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

func validIdentifier(id string) bool {
	if id == "" {
		return false
	}
	if isUUID(id) {
		return true
	}
	return len(id) <= maxIdentifierLength && identifierPattern.MatchString(id)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// NewPathResolver extracts the identifier from a chi route parameter,
// e.g. the {tenant} segment of /t/{tenant}/users.
func NewPathResolver(param string) Resolver {
	if param == "" {
		param = "tenant"
	}
	return func(r *http.Request) (string, error) {
		id := chi.URLParam(r, param)
		if id == "" {
			return "", nil
		}
		if !validIdentifier(id) {
			return "", fmt.Errorf("%w: path parameter %q", ErrInvalidIdentifier, param)
		}
		return id, nil
	}
}

// NewHeaderResolver extracts the identifier from a request header.
func NewHeaderResolver(header string) Resolver {
	if header == "" {
		header = "X-Tenant-ID"
	}
	return func(r *http.Request) (string, error) {
		id := r.Header.Get(header)
		if id == "" {
			return "", nil
		}
		if !validIdentifier(id) {
			return "", fmt.Errorf("%w: header %q", ErrInvalidIdentifier, header)
		}
		return id, nil
	}
}

// NewSubdomainResolver extracts the identifier from the request host,
// stripping the given base suffix (e.g. ".example.com" turns
// "acme.example.com" into "acme"). Hosts without a subdomain yield no
// identifier.
func NewSubdomainResolver(suffix string) Resolver {
	return func(r *http.Request) (string, error) {
		host := r.Host
		if i := strings.LastIndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		if suffix == "" || len(host) <= len(suffix) || host[len(host)-len(suffix):] != suffix {
			return "", nil
		}
		sub := host[:len(host)-len(suffix)]
		if sub == "" || sub == "www" {
			return "", nil
		}
		if !validIdentifier(sub) {
			return "", fmt.Errorf("%w: subdomain %q", ErrInvalidIdentifier, sub)
		}
		return sub, nil
	}
}

// NewClaimResolver reads the tenant identifier embedded in the request's
// authenticated identity. The extractor typically wraps the authn package's
// claims accessor; the claim itself is trusted as already verified and is
// not re-validated here.
func NewClaimResolver(fromContext func(ctx context.Context) (string, bool)) Resolver {
	return func(r *http.Request) (string, error) {
		if fromContext == nil {
			return "", errors.New("claim resolver: context extractor not configured")
		}
		id, ok := fromContext(r.Context())
		if !ok {
			return "", nil
		}
		return id, nil
	}
}

// NewCompositeResolver tries resolvers in order and returns the first
// non-empty identifier. The precedence between disagreeing sources is
// whatever order the caller passes; this project uses path, then header,
// then auth claim — a policy choice, not a technical requirement.
func NewCompositeResolver(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (string, error) {
		var errs []error
		for _, resolve := range resolvers {
			id, err := resolve(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if id != "" {
				return id, nil
			}
		}
		if len(errs) > 0 {
			return "", errors.Join(errs...)
		}
		return "", nil
	}
}
