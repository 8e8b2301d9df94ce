package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkgauth "gatehouse/pkg/auth"
	pkghttp "gatehouse/pkg/http"
)

// Exact login error strings. Clients match on these, do not reword.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgTemporarilyLocked  = "Your account is temporarily locked due to multiple failed login attempts. Please try again in %d minutes or contact an administrator."
	msgPermanentlyLocked  = "Your account has been permanently locked due to multiple failed login attempts. Please contact an administrator."
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, accessToken string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the request body for token refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var lockErr *services.AccountLockedError
		switch {
		case errors.As(err, &lockErr):
			if lockErr.Permanent {
				pkghttp.WriteUnauthorized(w, msgPermanentlyLocked)
			} else {
				pkghttp.WriteUnauthorized(w, fmt.Sprintf(msgTemporarilyLocked, lockErr.MinutesRemaining))
			}
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, msgInvalidCredentials)
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Login successful.", result)
}

// Refresh handles access token renewal from a refresh token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	// The token may arrive in the body or as a bearer header.
	if req.RefreshToken == "" {
		req.RefreshToken = bearerToken(r)
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingToken):
			pkghttp.WriteUnauthorized(w, "Refresh token is required.")
		case errors.Is(err, models.ErrNotRefreshToken):
			pkghttp.WriteUnauthorized(w, "Provided token is not a refresh token.")
		case errors.Is(err, models.ErrInvalidToken):
			pkghttp.WriteUnauthorized(w, "Invalid or expired token.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Token refreshed.", result)
}

// Logout revokes the bearer token used on the request
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.GetTokenFromContext(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid or expired token.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Logged out successfully.", nil)
}

// ChangePassword handles an authenticated password change
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Missing authentication token.")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		var policyErr *pkgauth.PolicyError
		switch {
		case errors.Is(err, models.ErrCurrentPasswordIncorrect):
			pkghttp.WriteValidationError(w, "Current password is incorrect.")
		case errors.Is(err, models.ErrPasswordUnchanged):
			pkghttp.WriteValidationError(w, "New password must be different from the current password.")
		case errors.As(err, &policyErr):
			pkghttp.WriteValidationError(w, policyErr.Error())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Invalid or expired token.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Password changed successfully.", nil)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
