// Package users is a tenant-scoped user management service. It reaches
// tenant data exclusively through resolved repositories: the tenant comes
// from the request context, the repository from the shared pool cache, and
// per-tenant repositories are reused across requests through a scope group.
package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/scope"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// ErrUserLimitReached is returned when a tenant is at its max_users quota.
var ErrUserLimitReached = errors.New("tenant user limit reached")

// ErrUserNotFound is returned when no user matches the requested id.
var ErrUserNotFound = errors.New("user not found")

const usersTable = "users"

// User is a row in a tenant schema's users table.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service handles user CRUD within the resolved tenant's schema.
type Service struct {
	repos *scope.Group[*tenantdb.Repository]
	log   *slog.Logger
}

// NewService wires the user service over the shared pool cache. Repositories
// group by schema name: since a schema maps 1:1 and immutably to a tenant,
// it doubles as the stable subtree key, so every request for a tenant reuses
// one repository instance instead of rebuilding it per request.
func NewService(pools *tenantdb.Pools, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repos: scope.NewGroup(scope.DefaultMaxSize,
			func(ctx context.Context, schema string) (*tenantdb.Repository, error) {
				return pools.Repository(ctx, schema, usersTable)
			},
			nil, // repositories borrow the shared pools; nothing to release
		),
		log: log,
	}
}

// Router mounts the user endpoints. Callers must wrap it with the tenant
// resolution middleware; every handler requires tenant context.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(tenant.RequireTenant(nil))
	r.Get("/", s.list)
	r.Post("/", s.create)
	r.Get("/{id}", s.get)
	r.Delete("/{id}", s.remove)
	return r
}

func (s *Service) repo(r *http.Request) (*tenantdb.Repository, *tenant.Tenant, error) {
	t, err := tenant.FromContext(r.Context())
	if err != nil {
		return nil, nil, err
	}
	repo, err := s.repos.Get(r.Context(), t.SchemaName)
	if err != nil {
		return nil, nil, err
	}
	return repo, t, nil
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	repo, _, err := s.repo(r)
	if err != nil {
		core.Error(w, err)
		return
	}

	rows, err := repo.Query(r.Context(), repo.
		Select("id", "email", "full_name", "active", "created_at", "updated_at").
		OrderBy("created_at"))
	if err != nil {
		core.Error(w, err)
		return
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			core.Error(w, err)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		core.Error(w, err)
		return
	}

	core.JSON(w, http.StatusOK, users)
}

type createRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (s *Service) create(w http.ResponseWriter, r *http.Request) {
	repo, t, err := s.repo(r)
	if err != nil {
		core.Error(w, err)
		return
	}

	var req createRequest
	if err := core.Decode(r, &req); err != nil || req.Email == "" {
		core.JSON(w, http.StatusBadRequest, nil)
		return
	}

	if t.MaxUsers > 0 {
		n, err := repo.Count(r.Context(), nil)
		if err != nil {
			core.Error(w, err)
			return
		}
		if n >= int64(t.MaxUsers) {
			s.log.InfoContext(r.Context(), "user limit reached", "max_users", t.MaxUsers)
			core.JSON(w, http.StatusForbidden, map[string]string{"error": ErrUserLimitReached.Error()})
			return
		}
	}

	row, err := repo.QueryRow(r.Context(), repo.Insert().
		Columns("email", "full_name").
		Values(req.Email, req.FullName).
		Suffix("RETURNING id, email, full_name, active, created_at, updated_at"))
	if err != nil {
		core.Error(w, err)
		return
	}

	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		core.Error(w, err)
		return
	}

	core.JSON(w, http.StatusCreated, u)
}

func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	repo, _, err := s.repo(r)
	if err != nil {
		core.Error(w, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.JSON(w, http.StatusBadRequest, nil)
		return
	}

	row, err := repo.QueryRow(r.Context(), repo.
		Select("id", "email", "full_name", "active", "created_at", "updated_at").
		Where(sq.Eq{"id": id}))
	if err != nil {
		core.Error(w, err)
		return
	}

	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		core.JSON(w, http.StatusNotFound, map[string]string{"error": ErrUserNotFound.Error()})
		return
	}

	core.JSON(w, http.StatusOK, u)
}

func (s *Service) remove(w http.ResponseWriter, r *http.Request) {
	repo, _, err := s.repo(r)
	if err != nil {
		core.Error(w, err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.JSON(w, http.StatusBadRequest, nil)
		return
	}

	tag, err := repo.Exec(r.Context(), repo.Delete().Where(sq.Eq{"id": id}))
	if err != nil {
		core.Error(w, err)
		return
	}
	if tag.RowsAffected() == 0 {
		core.JSON(w, http.StatusNotFound, map[string]string{"error": ErrUserNotFound.Error()})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
