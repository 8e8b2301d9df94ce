package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatehouse/internal/lockout"
	"gatehouse/internal/models"
	pkglogger "gatehouse/pkg/logger"
)

// LockoutService exposes the administrator view of locked accounts.
type LockoutService struct {
	users              UserRepository
	permanentThreshold time.Duration
	logger             *slog.Logger
	auditLogger        *pkglogger.AuditLogger
	now                func() time.Time
}

// NewLockoutService creates a new LockoutService. permanentThreshold is the
// remaining-lock span beyond which a lock is reported as permanent even
// without the explicit flag.
func NewLockoutService(users UserRepository, permanentThreshold time.Duration, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		users:              users,
		permanentThreshold: permanentThreshold,
		logger:             logger,
		auditLogger:        auditLogger,
		now:                time.Now,
	}
}

// SetClock overrides the service's clock for tests.
func (s *LockoutService) SetClock(now func() time.Time) {
	s.now = now
}

// LockedUser is the admin-facing summary of a locked account.
type LockedUser struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	LastName            string     `json:"last_name"`
	Email               string     `json:"email"`
	LockedUntil         *time.Time `json:"locked_until"`
	LockoutCount        int        `json:"lockout_count"`
	LastLockoutAt       *time.Time `json:"last_lockout_at"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	IsPermanentlyLocked bool       `json:"is_permanently_locked"`
}

// ListLockedUsers returns accounts that are currently locked, either
// permanently or with a lock window that has not yet expired.
func (s *LockoutService) ListLockedUsers(ctx context.Context, limit, offset int) ([]LockedUser, error) {
	now := s.now()
	users, err := s.users.ListLocked(ctx, now, limit, offset)
	if err != nil {
		s.logger.Error("failed to list locked users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	locked := make([]LockedUser, 0, len(users))
	for _, u := range users {
		locked = append(locked, LockedUser{
			ID:                  u.ID,
			Name:                u.Name,
			LastName:            u.LastName,
			Email:               u.Email,
			LockedUntil:         u.LockedUntil,
			LockoutCount:        u.LockoutCount,
			LastLockoutAt:       u.LastLockoutAt,
			FailedLoginAttempts: u.FailedLoginAttempts,
			IsPermanentlyLocked: lockout.IsPermanentlyLocked(u, now, s.permanentThreshold),
		})
	}
	return locked, nil
}

// UnlockUser clears an account's lock state. With resetLockoutCount the
// escalation history is wiped as well, so the next lock starts the
// permanent-lock ladder from scratch.
func (s *LockoutService) UnlockUser(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user for unlock", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !lockout.IsLockedOut(user, s.now()) {
		return nil, models.ErrNotLocked
	}

	lockout.Unlock(user, resetLockoutCount)
	if err := s.users.UpdateLockoutState(ctx, user); err != nil {
		s.logger.Error("failed to persist unlock", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogLockoutEvent("account_unlocked", user.ID, false)
	return user, nil
}
