package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkghttp "gatehouse/pkg/http"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// LockoutServiceInterface defines the interface for lockout administration
type LockoutServiceInterface interface {
	ListLockedUsers(ctx context.Context, limit, offset int) ([]services.LockedUser, error)
	UnlockUser(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error)
}

// LockoutHandler handles the admin lockout endpoints
type LockoutHandler struct {
	service LockoutServiceInterface
}

// NewLockoutHandler creates a new LockoutHandler
func NewLockoutHandler(service LockoutServiceInterface) *LockoutHandler {
	return &LockoutHandler{service: service}
}

// UnlockRequest represents the request body for an admin unlock
type UnlockRequest struct {
	ResetLockoutCount *bool `json:"reset_lockout_count"`
}

// ListLockedUsers returns the page of currently locked accounts
func (h *LockoutHandler) ListLockedUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	locked, err := h.service.ListLockedUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteSuccess(w, "Locked users retrieved.", map[string]interface{}{
		"users":  locked,
		"limit":  limit,
		"offset": offset,
	})
}

// UnlockUser clears the lock on an account. Without a body the escalation
// history is reset as well.
func (h *LockoutHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required.")
		return
	}

	resetLockoutCount := true
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.ResetLockoutCount != nil {
		resetLockoutCount = *req.ResetLockoutCount
	}

	user, err := h.service.UnlockUser(r.Context(), userID, resetLockoutCount)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found.")
		case errors.Is(err, models.ErrNotLocked):
			pkghttp.WriteBadRequest(w, "This account is not locked.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Account unlocked.", userResponse(user))
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}
