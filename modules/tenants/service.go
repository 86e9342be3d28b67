// Package tenants is the control-plane HTTP surface for tenant lifecycle:
// provisioning, reads, updates, deactivation, and restore. Mount it outside
// the tenant resolution middleware; it never runs in tenant context.
package tenants

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Provisioner creates the registry row and tenant schema as one unit.
// Satisfied by *tenantdb.Provisioner.
type Provisioner interface {
	CreateTenant(ctx context.Context, params tenant.CreateParams) (*tenant.Tenant, error)
}

// Service handles tenant CRUD requests.
type Service struct {
	store       tenant.Store
	provisioner Provisioner
	log         *slog.Logger
}

// NewService wires the tenant CRUD service.
func NewService(store tenant.Store, provisioner Provisioner, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, provisioner: provisioner, log: log}
}

// Router mounts the tenant CRUD endpoints.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.create)
	r.Get("/{id}", s.get)
	r.Patch("/{id}", s.update)
	r.Delete("/{id}", s.deactivate)
	r.Post("/{id}/restore", s.restore)
	return r
}

type createRequest struct {
	Name            string     `json:"name"`
	Subdomain       string     `json:"subdomain"`
	MaxUsers        int        `json:"max_users"`
	Modules         []string   `json:"modules"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}

func (s *Service) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := core.Decode(r, &req); err != nil {
		core.JSON(w, http.StatusBadRequest, nil)
		return
	}
	if req.Name == "" || req.Subdomain == "" {
		core.Error(w, tenant.ErrInvalidIdentifier)
		return
	}

	created, err := s.provisioner.CreateTenant(r.Context(), tenant.CreateParams{
		Name:            req.Name,
		Subdomain:       req.Subdomain,
		MaxUsers:        req.MaxUsers,
		Modules:         req.Modules,
		SubscriptionEnd: req.SubscriptionEnd,
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "tenant creation failed", "subdomain", req.Subdomain, "error", err)
		core.Error(w, err)
		return
	}

	core.JSON(w, http.StatusCreated, created)
}

func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, tenant.ErrInvalidIdentifier)
		return
	}
	t, err := s.store.FindByID(r.Context(), id)
	if err != nil {
		core.Error(w, err)
		return
	}
	core.JSON(w, http.StatusOK, t)
}

type updateRequest struct {
	Name            *string    `json:"name"`
	MaxUsers        *int       `json:"max_users"`
	Modules         []string   `json:"modules"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}

func (s *Service) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, tenant.ErrInvalidIdentifier)
		return
	}
	var req updateRequest
	if err := core.Decode(r, &req); err != nil {
		core.JSON(w, http.StatusBadRequest, nil)
		return
	}
	t, err := s.store.Update(r.Context(), id, tenant.UpdateParams{
		Name:            req.Name,
		MaxUsers:        req.MaxUsers,
		Modules:         req.Modules,
		SubscriptionEnd: req.SubscriptionEnd,
	})
	if err != nil {
		core.Error(w, err)
		return
	}
	core.JSON(w, http.StatusOK, t)
}

func (s *Service) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, tenant.ErrInvalidIdentifier)
		return
	}
	if err := s.store.Deactivate(r.Context(), id); err != nil {
		core.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) restore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, tenant.ErrInvalidIdentifier)
		return
	}
	if err := s.store.Restore(r.Context(), id); err != nil {
		core.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
