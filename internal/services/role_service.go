package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gatehouse/internal/models"
)

// RoleService handles role administration. Role names are stored lowercased
// so the built-in names compare predictably.
type RoleService struct {
	roles  RoleRepository
	logger *slog.Logger
}

// NewRoleService creates a new RoleService
func NewRoleService(roles RoleRepository, logger *slog.Logger) *RoleService {
	return &RoleService{roles: roles, logger: logger}
}

// ListRoles returns all roles.
func (s *RoleService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		s.logger.Error("failed to list roles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return roles, nil
}

// GetRole returns a single role by ID.
func (s *RoleService) GetRole(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get role", slog.String("role_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return role, nil
}

// CreateRole creates a role with a unique lowercased name.
func (s *RoleService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, models.ErrBadRequest
	}

	if _, err := s.roles.GetByName(ctx, name); err == nil {
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInternalServer
	}

	role, err := s.roles.Create(ctx, &models.Role{Name: name})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create role", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return role, nil
}

// UpdateRole renames a role. The built-in roles cannot be renamed since the
// authorization middleware matches them by name.
func (s *RoleService) UpdateRole(ctx context.Context, id, name string) (*models.Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, models.ErrBadRequest
	}

	existing, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}

	if isBuiltinRole(existing.Name) {
		return nil, models.ErrForbidden
	}

	role, err := s.roles.Update(ctx, id, name)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update role", slog.String("role_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return role, nil
}

// DeleteRole removes a role. Built-in roles cannot be deleted, and roles
// still referenced by users fail with a conflict from the foreign key.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	existing, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return models.ErrInternalServer
	}

	if isBuiltinRole(existing.Name) {
		return models.ErrForbidden
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrBadRequest) || errors.Is(err, models.ErrConflict) {
			return models.ErrConflict
		}
		s.logger.Error("failed to delete role", slog.String("role_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func isBuiltinRole(name string) bool {
	switch name {
	case models.RoleAdmin, models.RoleSuperadmin, models.RoleUser:
		return true
	}
	return false
}
