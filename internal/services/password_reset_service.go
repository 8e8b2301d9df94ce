package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
	pkglogger "gatehouse/pkg/logger"
)

// PasswordResetService handles the forgot-password flow.
type PasswordResetService struct {
	users            UserRepository
	mailer           Mailer
	passwordPolicy   pkgauth.Policy
	resetTokenExpiry time.Duration
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
	now              func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	users UserRepository,
	mailer Mailer,
	passwordPolicy pkgauth.Policy,
	resetTokenExpiry time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordResetService {
	return &PasswordResetService{
		users:            users,
		mailer:           mailer,
		passwordPolicy:   passwordPolicy,
		resetTokenExpiry: resetTokenExpiry,
		logger:           logger,
		auditLogger:      auditLogger,
		now:              time.Now,
	}
}

// SetClock overrides the service's clock for tests.
func (s *PasswordResetService) SetClock(now func() time.Time) {
	s.now = now
}

// SendResetLink generates a reset token for the account and emails it.
// Unknown addresses return nil so the endpoint never reveals whether an
// account exists.
func (s *PasswordResetService) SendResetLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to look up user for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.resetTokenExpiry)
	if err := s.users.SetPasswordResetToken(ctx, user.ID, token, expiresAt); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, nil)
	s.notify("password_reset", func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, user.Email, token, expiresAt)
	})

	return nil
}

// ResetPassword consumes a valid reset token and sets the new password. The
// token is scoped to the email it was issued for and expires server side.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByResetToken(ctx, email, token, s.now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrResetTokenInvalid
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(newPassword, s.passwordPolicy); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// UpdatePassword clears the reset token columns, so a token is single use.
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_completed", user.ID, nil)
	s.notify("password_changed", func(ctx context.Context) error {
		return s.mailer.SendPasswordChanged(ctx, user.Email)
	})

	return nil
}

func (s *PasswordResetService) notify(what string, send func(ctx context.Context) error) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := send(ctx); err != nil {
			s.logger.Error("notification send failed",
				slog.String("notification", what),
				slog.Any("error", err))
		}
	}()
}
