package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
	pkghttp "gatehouse/pkg/http"
)

// PasswordResetServiceInterface defines the interface for the forgot-password flow
type PasswordResetServiceInterface interface {
	SendResetLink(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

// PasswordResetHandler handles password reset HTTP requests
type PasswordResetHandler struct {
	service PasswordResetServiceInterface
}

// NewPasswordResetHandler creates a new PasswordResetHandler
func NewPasswordResetHandler(service PasswordResetServiceInterface) *PasswordResetHandler {
	return &PasswordResetHandler{service: service}
}

// ForgotPasswordRequest represents the request body for requesting a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for consuming a reset token
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ForgotPassword requests a reset link. The response is identical whether or
// not the email exists.
func (h *PasswordResetHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.SendResetLink(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteSuccess(w, "If the email is registered, a password reset link has been sent.", nil)
}

// ResetPassword consumes a reset token and sets the new password
func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Token, req.Password); err != nil {
		var policyErr *pkgauth.PolicyError
		switch {
		case errors.Is(err, models.ErrResetTokenInvalid):
			pkghttp.WriteBadRequest(w, "Invalid or expired password reset token.")
		case errors.As(err, &policyErr):
			pkghttp.WriteValidationError(w, policyErr.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Password has been reset.", nil)
}
