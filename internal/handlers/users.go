package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkgauth "gatehouse/pkg/auth"
	pkghttp "gatehouse/pkg/http"
)

// UserServiceInterface defines the interface for account administration
type UserServiceInterface interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, input services.CreateUserInput, actorID string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, input services.UpdateUserInput, actorID string) (*models.User, error)
	DeleteUser(ctx context.Context, id, actorID string) error
	UpdateProfile(ctx context.Context, userID string, name, lastName, email *string) (*models.User, error)
}

// UserHandler handles user CRUD and profile HTTP requests
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// UserResponse is the public shape of an account. Password hashes and token
// material never leave the service layer.
type UserResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Role          string    `json:"role,omitempty"`
	RoleID        string    `json:"role_id"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func userResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		LastName:      u.LastName,
		Email:         u.Email,
		RoleID:        u.RoleID,
		EmailVerified: u.EmailVerified(),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.Role != nil {
		resp.Role = u.Role.Name
	}
	return resp
}

func userResponses(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	return out
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	LastName string `json:"last_name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	RoleID   string `json:"role_id" validate:"required,uuid"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	LastName *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	RoleID   *string `json:"role_id" validate:"omitempty,uuid"`
}

// UpdateProfileRequest represents the request body for a self-service profile update
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	LastName *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// List returns a page of accounts
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteSuccess(w, "Users retrieved.", map[string]interface{}{
		"users":  userResponses(users),
		"limit":  limit,
		"offset": offset,
	})
}

// Get returns a single account
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "User retrieved.", userResponse(user))
}

// Create adds a new account
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), services.CreateUserInput{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
	}, claims.UserID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteCreated(w, "User created.", userResponse(user))
}

// Update modifies an account
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	id := chi.URLParam(r, "id")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, services.UpdateUserInput{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
	}, claims.UserID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "User updated.", userResponse(user))
}

// Delete removes an account
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(r.Context(), id, claims.UserID); err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "You cannot delete your own account.")
		case errors.Is(err, models.ErrSuperadminProtected):
			pkghttp.WriteForbidden(w, "Only superadmins can modify superadmin accounts.")
		default:
			writeUserError(w, err)
		}
		return
	}

	pkghttp.WriteSuccess(w, "User deleted.", nil)
}

// GetProfile returns the authenticated user's own account
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Profile retrieved.", userResponse(user))
}

// UpdateProfile modifies the authenticated user's own profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, req.Name, req.LastName, req.Email)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Profile updated.", userResponse(user))
}

func writeUserError(w http.ResponseWriter, err error) {
	var policyErr *pkgauth.PolicyError
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found.")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "A user with this email already exists.")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid role.")
	case errors.Is(err, models.ErrSuperadminProtected):
		pkghttp.WriteForbidden(w, "Only superadmins can modify superadmin accounts.")
	case errors.As(err, &policyErr):
		pkghttp.WriteValidationError(w, policyErr.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
