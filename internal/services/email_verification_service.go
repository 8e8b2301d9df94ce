package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
	pkglogger "gatehouse/pkg/logger"
)

// EmailVerificationService handles verifying account email addresses.
type EmailVerificationService struct {
	users       UserRepository
	mailer      Mailer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewEmailVerificationService creates a new EmailVerificationService
func NewEmailVerificationService(
	users UserRepository,
	mailer Mailer,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *EmailVerificationService {
	return &EmailVerificationService{
		users:       users,
		mailer:      mailer,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SetClock overrides the service's clock for tests.
func (s *EmailVerificationService) SetClock(now func() time.Time) {
	s.now = now
}

// Verify consumes a verification code and marks the account verified.
func (s *EmailVerificationService) Verify(ctx context.Context, code string) error {
	if code == "" {
		return models.ErrInvalidVerificationCode
	}

	user, err := s.users.GetByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidVerificationCode
		}
		s.logger.Error("failed to look up verification code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified() {
		return models.ErrAlreadyVerified
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID, s.now()); err != nil {
		s.logger.Error("failed to mark email verified", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("email_verified", user.ID, nil)
	return nil
}

// Resend issues a fresh verification email for an unverified account.
func (s *EmailVerificationService) Resend(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for resend", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified() {
		return models.ErrAlreadyVerified
	}

	code := ""
	if user.VerificationCode != nil {
		code = *user.VerificationCode
	}
	if code == "" {
		code, err = pkgauth.GenerateVerificationCode()
		if err != nil {
			s.logger.Error("failed to generate verification code", slog.Any("error", err))
			return models.ErrInternalServer
		}
		if err := s.users.SetVerificationCode(ctx, user.ID, &code); err != nil {
			s.logger.Error("failed to store verification code", slog.String("user_id", user.ID), slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	sendCode := code
	s.notify("verification", func(ctx context.Context) error {
		return s.mailer.SendVerification(ctx, user.Email, sendCode)
	})
	return nil
}

func (s *EmailVerificationService) notify(what string, send func(ctx context.Context) error) {
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
