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

// UserRepository defines the interface for user persistence
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListLocked(ctx context.Context, now time.Time, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdateLockoutState(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetPasswordResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, email, token string, now time.Time) (*models.User, error)
	GetByVerificationCode(ctx context.Context, code string) (*models.User, error)
	SetVerificationCode(ctx context.Context, id string, code *string) error
	MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Create(ctx context.Context, role *models.Role) (*models.Role, error)
	Update(ctx context.Context, id, name string) (*models.Role, error)
	Delete(ctx context.Context, id string) error
}

// CreateUserInput carries the fields an administrator supplies for a new account.
type CreateUserInput struct {
	Name     string
	LastName string
	Email    string
	Password string
	RoleID   string
}

// UpdateUserInput carries the mutable account fields. Nil pointers leave the
// corresponding column untouched.
type UpdateUserInput struct {
	Name     *string
	LastName *string
	Email    *string
	Password *string
	RoleID   *string
}

// UserService handles account administration
type UserService struct {
	users          UserRepository
	roles          RoleRepository
	mailer         Mailer
	passwordPolicy pkgauth.Policy
	logger         *slog.Logger
	auditLogger    *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(
	users UserRepository,
	roles RoleRepository,
	mailer Mailer,
	passwordPolicy pkgauth.Policy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *UserService {
	return &UserService{
		users:          users,
		roles:          roles,
		mailer:         mailer,
		passwordPolicy: passwordPolicy,
		logger:         logger,
		auditLogger:    auditLogger,
	}
}

// ListUsers returns a page of accounts.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

// GetUser returns a single account by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// CreateUser creates an account and sends its verification email. The email
// is stored lowercased so lookups stay case insensitive. Only superadmin
// actors may create superadmin accounts.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput, actorID string) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := pkgauth.ValidatePassword(input.Password, s.passwordPolicy); err != nil {
		return nil, err
	}

	role, err := s.roles.GetByID(ctx, input.RoleID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		return nil, models.ErrInternalServer
	}

	if role.IsSuperadmin() {
		ok, err := s.actorIsSuperadmin(ctx, actorID)
		if err != nil {
			return nil, models.ErrInternalServer
		}
		if !ok {
			return nil, models.ErrSuperadminProtected
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	code, err := pkgauth.GenerateVerificationCode()
	if err != nil {
		s.logger.Error("failed to generate verification code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Name:             input.Name,
		LastName:         input.LastName,
		Email:            email,
		PasswordHash:     hash,
		RoleID:           input.RoleID,
		VerificationCode: &code,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_created", created.ID, nil)
	s.notify("verification", func(ctx context.Context) error {
		return s.mailer.SendVerification(ctx, created.Email, code)
	})

	return created, nil
}

// UpdateUser applies the supplied changes. Changing the email address resets
// the account to unverified and sends a fresh verification link.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput, actorID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}

	var newRole *models.Role
	if input.RoleID != nil && *input.RoleID != user.RoleID {
		newRole, err = s.roles.GetByID(ctx, *input.RoleID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrBadRequest
			}
			return nil, models.ErrInternalServer
		}
	}

	// Superadmin records, and the superadmin role itself, may only be
	// touched by a superadmin actor.
	if user.IsSuperadmin() || (newRole != nil && newRole.IsSuperadmin()) {
		ok, err := s.actorIsSuperadmin(ctx, actorID)
		if err != nil {
			return nil, models.ErrInternalServer
		}
		if !ok {
			return nil, models.ErrSuperadminProtected
		}
	}

	// Validate everything before the first write so an invalid field never
	// leaves a half-applied update behind.
	newHash := ""
	if input.Password != nil {
		if err := pkgauth.ValidatePassword(*input.Password, s.passwordPolicy); err != nil {
			return nil, err
		}
		newHash, err = pkgauth.HashPassword(*input.Password)
		if err != nil {
			return nil, models.ErrInternalServer
		}
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if newRole != nil {
		user.RoleID = newRole.ID
	}

	emailChanged := false
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != user.ID {
				return nil, models.ErrConflict
			} else if err != nil && !errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrInternalServer
			}
			user.Email = email
			emailChanged = true
		}
	}

	updated, err := s.users.Update(ctx, id, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, id, newHash); err != nil {
			s.logger.Error("failed to update password", slog.String("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	if emailChanged {
		code, err := pkgauth.GenerateVerificationCode()
		if err != nil {
			return nil, models.ErrInternalServer
		}
		if err := s.users.SetVerificationCode(ctx, id, &code); err != nil {
			s.logger.Error("failed to reset verification", slog.String("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		updated.EmailVerifiedAt = nil
		updated.VerificationCode = &code
		s.notify("verification", func(ctx context.Context) error {
			return s.mailer.SendVerification(ctx, updated.Email, code)
		})
	}

	s.auditLogger.LogAccountAction("user_updated", id, nil)
	return updated, nil
}

// DeleteUser removes an account. Users cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return models.ErrForbidden
	}

	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return models.ErrInternalServer
	}

	// Superadmin accounts may only be removed by another superadmin.
	if target.IsSuperadmin() {
		ok, err := s.actorIsSuperadmin(ctx, actorID)
		if err != nil {
			return models.ErrInternalServer
		}
		if !ok {
			return models.ErrSuperadminProtected
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_deleted", id, map[string]string{"actor_id": actorID})
	return nil
}

// UpdateProfile lets a user change their own name fields and email address.
// Role and password are not reachable from here; changing the email resets
// verification and triggers a fresh verification mail.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, name, lastName, email *string) (*models.User, error) {
	return s.UpdateUser(ctx, userID, UpdateUserInput{
		Name:     name,
		LastName: lastName,
		Email:    email,
	}, userID)
}

func (s *UserService) actorIsSuperadmin(ctx context.Context, actorID string) (bool, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return false, err
	}
	return actor.IsSuperadmin(), nil
}

func (s *UserService) notify(what string, send func(ctx context.Context) error) {
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
