package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/models"
	pkghttp "gatehouse/pkg/http"
)

// RoleServiceInterface defines the interface for role administration
type RoleServiceInterface interface {
	ListRoles(ctx context.Context) ([]*models.Role, error)
	GetRole(ctx context.Context, id string) (*models.Role, error)
	CreateRole(ctx context.Context, name string) (*models.Role, error)
	UpdateRole(ctx context.Context, id, name string) (*models.Role, error)
	DeleteRole(ctx context.Context, id string) error
}

// RoleHandler handles role CRUD HTTP requests
type RoleHandler struct {
	service RoleServiceInterface
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(service RoleServiceInterface) *RoleHandler {
	return &RoleHandler{service: service}
}

// RoleRequest represents the request body for creating or renaming a role
type RoleRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// List returns all roles
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	pkghttp.WriteSuccess(w, "Roles retrieved.", roles)
}

// Get returns a single role
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeRoleError(w, err)
		return
	}
	pkghttp.WriteSuccess(w, "Role retrieved.", role)
}

// Create adds a new role
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role, err := h.service.CreateRole(r.Context(), req.Name)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	pkghttp.WriteCreated(w, "Role created.", role)
}

// Update renames a role
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	pkghttp.WriteSuccess(w, "Role updated.", role)
}

// Delete removes a role
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeRoleError(w, err)
		return
	}
	pkghttp.WriteSuccess(w, "Role deleted.", nil)
}

func writeRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Role not found.")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "A role with this name already exists, or users still reference it.")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Built-in roles cannot be modified.")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Role name is required.")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
