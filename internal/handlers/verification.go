package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatehouse/internal/models"
	pkghttp "gatehouse/pkg/http"
)

// EmailVerificationServiceInterface defines the interface for email verification
type EmailVerificationServiceInterface interface {
	Verify(ctx context.Context, code string) error
	Resend(ctx context.Context, userID string) error
}

// VerificationHandler handles email verification HTTP requests
type VerificationHandler struct {
	service EmailVerificationServiceInterface
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(service EmailVerificationServiceInterface) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// Verify consumes a verification code from the emailed link
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	if err := h.service.Verify(r.Context(), code); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidVerificationCode):
			pkghttp.WriteBadRequest(w, "Invalid verification code.")
		case errors.Is(err, models.ErrAlreadyVerified):
			pkghttp.WriteBadRequest(w, "Email address is already verified.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Email address verified.", nil)
}

// Resend sends a fresh verification email to the given user
func (h *VerificationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := h.service.Resend(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyVerified):
			pkghttp.WriteBadRequest(w, "Email address is already verified.")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteSuccess(w, "Verification email sent.", nil)
}
