package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/config"
	"gatehouse/internal/lockout"
	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
	pkglogger "gatehouse/pkg/logger"
)

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AccountLockedError signals that login was refused because the account is
// locked. MinutesRemaining is meaningful only for temporary locks.
type AccountLockedError struct {
	Permanent        bool
	MinutesRemaining int
}

func (e *AccountLockedError) Error() string {
	if e.Permanent {
		return "account is permanently locked"
	}
	return fmt.Sprintf("account is locked for another %d minutes", e.MinutesRemaining)
}

// AuthService handles login, token refresh, logout and password changes,
// driving the lockout policy on failed logins.
type AuthService struct {
	users          UserRepository
	revokeRepo     TokenRevocationRepository
	tm             *auth.TokenManager
	mailer         Mailer
	lockoutCfg     config.LockoutConfig
	passwordPolicy pkgauth.Policy
	logger         *slog.Logger
	auditLogger    *pkglogger.AuditLogger
	now            func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	revokeRepo TokenRevocationRepository,
	tm *auth.TokenManager,
	mailer Mailer,
	lockoutCfg config.LockoutConfig,
	passwordPolicy pkgauth.Policy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		users:          users,
		revokeRepo:     revokeRepo,
		tm:             tm,
		mailer:         mailer,
		lockoutCfg:     lockoutCfg,
		passwordPolicy: passwordPolicy,
		logger:         logger,
		auditLogger:    auditLogger,
		now:            time.Now,
	}
}

// SetClock overrides the service's clock. Tests use this to drive window
// arithmetic deterministically.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// LoginResult is the response body of a successful login
type LoginResult struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

// RefreshResult is the response body of a successful token refresh
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login authenticates a user and returns an access/refresh token pair.
//
// The lock check happens before password verification and never touches the
// attempt counters; only an actual wrong password feeds the lockout policy.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrInvalidCredentials
	}

	now := s.now()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Same error as a wrong password so account existence never leaks.
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if lockout.IsLockedOut(user, now) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, s.lockedError(user, now)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.handleFailedLogin(ctx, user, now)
	}

	lockout.ResetOnSuccess(user)
	if err := s.users.UpdateLockoutState(ctx, user); err != nil {
		s.logger.Error("failed to reset login attempts", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return &LoginResult{
		AccessToken:      accessToken,
		TokenType:        "bearer",
		ExpiresIn:        int64(s.tm.AccessTokenExpiry().Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(s.tm.RefreshTokenExpiry().Seconds()),
	}, nil
}

// handleFailedLogin feeds the lockout policy, persists the new state, and
// notifies the user if this attempt applied a lock.
func (s *AuthService) handleFailedLogin(ctx context.Context, user *models.User, now time.Time) error {
	outcome := lockout.RegisterFailedAttempt(user, now, s.lockoutCfg)

	if err := s.users.UpdateLockoutState(ctx, user); err != nil {
		s.logger.Error("failed to persist lockout state", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !outcome.Locked {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return models.ErrInvalidCredentials
	}

	s.auditLogger.LogLockoutEvent("account_locked", user.ID, outcome.Permanent)
	s.notify("account_locked", func(ctx context.Context) error {
		return s.mailer.SendAccountLocked(ctx, user.Email, outcome.Permanent, outcome.LockDuration)
	})

	if outcome.Permanent {
		return &AccountLockedError{Permanent: true}
	}
	return &AccountLockedError{MinutesRemaining: int(outcome.LockDuration.Minutes())}
}

func (s *AuthService) lockedError(user *models.User, now time.Time) error {
	if user.IsPermanentlyLocked {
		return &AccountLockedError{Permanent: true}
	}
	remaining := user.LockedUntil.Sub(now)
	return &AccountLockedError{MinutesRemaining: int(math.Ceil(remaining.Minutes()))}
}

// Refresh validates a refresh token and mints a new access token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrMissingToken
	}

	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrInvalidToken
	}

	// An access token must never mint further access tokens; that would
	// extend a short-lived credential indefinitely.
	if !claims.Refresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrNotRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &RefreshResult{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tm.AccessTokenExpiry().Seconds()),
	}, nil
}

// Logout revokes the presented access token.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	expiresAt := claims.ExpiresAt.Time
	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, expiresAt, "logout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// ChangePassword verifies the current password, enforces the strong-password
// policy, and persists the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return models.ErrCurrentPasswordIncorrect
	}

	if newPassword == currentPassword {
		return models.ErrPasswordUnchanged
	}

	if err := pkgauth.ValidatePassword(newPassword, s.passwordPolicy); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_changed", user.ID, nil)
	s.notify("password_changed", func(ctx context.Context) error {
		return s.mailer.SendPasswordChanged(ctx, user.Email)
	})

	return nil
}

// notify fires a mail send without blocking the request; delivery failures
// are logged and never reach the caller.
func (s *AuthService) notify(what string, send func(ctx context.Context) error) {
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
