package models

import (
	"strings"
	"time"
)

const (
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
	RoleUser       = "user"
)

// Role names are stored lowercased and are unique case-insensitively.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Role) IsAdmin() bool {
	return strings.EqualFold(r.Name, RoleAdmin)
}

func (r *Role) IsSuperadmin() bool {
	return strings.EqualFold(r.Name, RoleSuperadmin)
}
