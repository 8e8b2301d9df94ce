package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/models"
	pkgauth "gatehouse/pkg/auth"
)

func newTestUserService(users UserRepository, roles RoleRepository, mailer Mailer) *UserService {
	return NewUserService(users, roles, mailer, testPasswordPolicy, newTestLogger(), newTestAuditLogger())
}

func rolesWithUserRole() *MockRoleRepository {
	return &MockRoleRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Role, error) {
			if id == "role-user" {
				return &models.Role{ID: id, Name: models.RoleUser}, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func TestCreateUser(t *testing.T) {
	t.Run("lowercases email and sends verification", func(t *testing.T) {
		var created *models.User
		users := &MockUserRepository{
			GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
				return nil, models.ErrNotFound
			},
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				user.ID = "u1"
				created = user
				return user, nil
			},
		}

		mailer := &MockMailer{}
		svc := newTestUserService(users, rolesWithUserRole(), mailer)

		result, err := svc.CreateUser(context.Background(), CreateUserInput{
			Name:     "Ada",
			LastName: "Lovelace",
			Email:    "Ada.Lovelace@Example.COM",
			Password: "Strong#Pass1word",
			RoleID:   "role-user",
		}, "actor-admin")

		require.NoError(t, err)
		assert.Equal(t, "ada.lovelace@example.com", result.Email)
		require.NotNil(t, created.VerificationCode)
		assert.Nil(t, created.EmailVerifiedAt)

		assert.Eventually(t, func() bool {
			return len(mailer.Sends()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Contains(t, mailer.Sends(), "verification")
	})

	t.Run("rejects weak password", func(t *testing.T) {
		svc := newTestUserService(&MockUserRepository{}, rolesWithUserRole(), &MockMailer{})

		_, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "ada@example.com",
			Password: "nouppercase1!",
			RoleID:   "role-user",
		}, "actor-admin")

		var policyErr *pkgauth.PolicyError
		assert.ErrorAs(t, err, &policyErr)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		svc := newTestUserService(&MockUserRepository{}, rolesWithUserRole(), &MockMailer{})

		_, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "ada@example.com",
			Password: "Strong#Pass1word",
			RoleID:   "no-such-role",
		}, "actor-admin")
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		users := &MockUserRepository{
			GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
				return &models.User{ID: "existing", Email: email}, nil
			},
		}
		svc := newTestUserService(users, rolesWithUserRole(), &MockMailer{})

		_, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "ada@example.com",
			Password: "Strong#Pass1word",
			RoleID:   "role-user",
		}, "actor-admin")
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestUpdateUser_EmailChangeResetsVerification(t *testing.T) {
	verifiedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var newCode *string

	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{
				ID:              id,
				Email:           "old@example.com",
				RoleID:          "role-user",
				EmailVerifiedAt: &verifiedAt,
			}, nil
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			return user, nil
		},
		SetVerificationCodeFunc: func(ctx context.Context, id string, code *string) error {
			newCode = code
			return nil
		},
	}

	mailer := &MockMailer{}
	svc := newTestUserService(users, rolesWithUserRole(), mailer)

	email := "New@Example.com"
	updated, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{Email: &email}, "actor-admin")

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Nil(t, updated.EmailVerifiedAt)
	require.NotNil(t, newCode)
	assert.NotEmpty(t, *newCode)

	assert.Eventually(t, func() bool {
		return len(mailer.Sends()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateUser_SameEmailKeepsVerification(t *testing.T) {
	verifiedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "same@example.com", EmailVerifiedAt: &verifiedAt}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestUserService(users, rolesWithUserRole(), &MockMailer{})

	email := "Same@Example.com"
	updated, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{Email: &email}, "actor-admin")

	require.NoError(t, err)
	assert.NotNil(t, updated.EmailVerifiedAt)
}

func rolesWithSuperadmin() *MockRoleRepository {
	return &MockRoleRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Role, error) {
			switch id {
			case "role-user":
				return &models.Role{ID: id, Name: models.RoleUser}, nil
			case "role-super":
				return &models.Role{ID: id, Name: models.RoleSuperadmin}, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func TestCreateUser_SuperadminRoleRequiresSuperadminActor(t *testing.T) {
	adminRole := &models.Role{ID: "role-admin", Name: models.RoleAdmin}
	superRole := &models.Role{ID: "role-super", Name: models.RoleSuperadmin}

	t.Run("admin actor rejected", func(t *testing.T) {
		created := false
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				return &models.User{ID: id, Role: adminRole}, nil
			},
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				created = true
				return user, nil
			},
		}
		svc := newTestUserService(users, rolesWithSuperadmin(), &MockMailer{})

		_, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "new@example.com",
			Password: "Strong#Pass1word",
			RoleID:   "role-super",
		}, "admin")

		assert.ErrorIs(t, err, models.ErrSuperadminProtected)
		assert.False(t, created)
	})

	t.Run("superadmin actor allowed", func(t *testing.T) {
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				return &models.User{ID: id, Role: superRole}, nil
			},
			GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
				return nil, models.ErrNotFound
			},
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				user.ID = "u1"
				return user, nil
			},
		}
		svc := newTestUserService(users, rolesWithSuperadmin(), &MockMailer{})

		result, err := svc.CreateUser(context.Background(), CreateUserInput{
			Email:    "new@example.com",
			Password: "Strong#Pass1word",
			RoleID:   "role-super",
		}, "root")

		require.NoError(t, err)
		assert.Equal(t, "role-super", result.RoleID)
	})
}

func TestUpdateUser_SuperadminGuard(t *testing.T) {
	adminRole := &models.Role{ID: "role-admin", Name: models.RoleAdmin}
	superRole := &models.Role{ID: "role-super", Name: models.RoleSuperadmin}
	userRole := &models.Role{ID: "role-user", Name: models.RoleUser}

	t.Run("admin cannot grant the superadmin role", func(t *testing.T) {
		updated := false
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				if id == "admin" {
					return &models.User{ID: id, Role: adminRole}, nil
				}
				return &models.User{ID: id, RoleID: "role-user", Role: userRole}, nil
			},
			UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
				updated = true
				return user, nil
			},
		}
		svc := newTestUserService(users, rolesWithSuperadmin(), &MockMailer{})

		roleID := "role-super"
		_, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{RoleID: &roleID}, "admin")

		assert.ErrorIs(t, err, models.ErrSuperadminProtected)
		assert.False(t, updated)
	})

	t.Run("admin cannot edit a superadmin account", func(t *testing.T) {
		updated := false
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				if id == "admin" {
					return &models.User{ID: id, Role: adminRole}, nil
				}
				return &models.User{ID: id, RoleID: "role-super", Role: superRole}, nil
			},
			UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
				updated = true
				return user, nil
			},
		}
		svc := newTestUserService(users, rolesWithSuperadmin(), &MockMailer{})

		name := "Renamed"
		_, err := svc.UpdateUser(context.Background(), "root", UpdateUserInput{Name: &name}, "admin")

		assert.ErrorIs(t, err, models.ErrSuperadminProtected)
		assert.False(t, updated)
	})

	t.Run("superadmin can grant the superadmin role", func(t *testing.T) {
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				if id == "root" {
					return &models.User{ID: id, Role: superRole}, nil
				}
				return &models.User{ID: id, RoleID: "role-user", Role: userRole}, nil
			},
			UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
				return user, nil
			},
		}
		svc := newTestUserService(users, rolesWithSuperadmin(), &MockMailer{})

		roleID := "role-super"
		result, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{RoleID: &roleID}, "root")

		require.NoError(t, err)
		assert.Equal(t, "role-super", result.RoleID)
	})
}

func TestUpdateUser_WeakPasswordWritesNothing(t *testing.T) {
	updated := false
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "u@example.com", RoleID: "role-user"}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			updated = true
			return user, nil
		},
		UpdatePasswordFunc: func(ctx context.Context, id, passwordHash string) error {
			t.Fatal("password must not be persisted")
			return nil
		},
	}
	svc := newTestUserService(users, rolesWithUserRole(), &MockMailer{})

	name := "New Name"
	weak := "short"
	_, err := svc.UpdateUser(context.Background(), "u1", UpdateUserInput{Name: &name, Password: &weak}, "actor-admin")

	var policyErr *pkgauth.PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.False(t, updated)
}

func TestDeleteUser(t *testing.T) {
	t.Run("self delete forbidden", func(t *testing.T) {
		svc := newTestUserService(&MockUserRepository{}, rolesWithUserRole(), nil)
		err := svc.DeleteUser(context.Background(), "u1", "u1")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("deletes another user", func(t *testing.T) {
		deleted := ""
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				return &models.User{ID: id}, nil
			},
			DeleteFunc: func(ctx context.Context, id string) error {
				deleted = id
				return nil
			},
		}
		svc := newTestUserService(users, rolesWithUserRole(), nil)

		require.NoError(t, svc.DeleteUser(context.Background(), "u2", "u1"))
		assert.Equal(t, "u2", deleted)
	})

	t.Run("superadmin target requires superadmin actor", func(t *testing.T) {
		superRole := &models.Role{ID: "r0", Name: models.RoleSuperadmin}
		adminRole := &models.Role{ID: "r1", Name: models.RoleAdmin}
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				if id == "root" {
					return &models.User{ID: id, Role: superRole}, nil
				}
				return &models.User{ID: id, Role: adminRole}, nil
			},
		}
		svc := newTestUserService(users, rolesWithUserRole(), nil)

		err := svc.DeleteUser(context.Background(), "root", "admin")
		assert.ErrorIs(t, err, models.ErrSuperadminProtected)
	})

	t.Run("superadmin actor can delete superadmin", func(t *testing.T) {
		superRole := &models.Role{ID: "r0", Name: models.RoleSuperadmin}
		deleted := ""
		users := &MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				return &models.User{ID: id, Role: superRole}, nil
			},
			DeleteFunc: func(ctx context.Context, id string) error {
				deleted = id
				return nil
			},
		}
		svc := newTestUserService(users, rolesWithUserRole(), nil)

		require.NoError(t, svc.DeleteUser(context.Background(), "root2", "root1"))
		assert.Equal(t, "root2", deleted)
	})
}

func TestRoleService(t *testing.T) {
	t.Run("create lowercases name", func(t *testing.T) {
		roles := &MockRoleRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*models.Role, error) {
				return nil, models.ErrNotFound
			},
			CreateFunc: func(ctx context.Context, role *models.Role) (*models.Role, error) {
				role.ID = "r1"
				return role, nil
			},
		}
		svc := NewRoleService(roles, newTestLogger())

		role, err := svc.CreateRole(context.Background(), "  Auditor ")
		require.NoError(t, err)
		assert.Equal(t, "auditor", role.Name)
	})

	t.Run("create duplicate", func(t *testing.T) {
		roles := &MockRoleRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*models.Role, error) {
				return &models.Role{ID: "r1", Name: name}, nil
			},
		}
		svc := NewRoleService(roles, newTestLogger())

		_, err := svc.CreateRole(context.Background(), "auditor")
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("builtin roles protected", func(t *testing.T) {
		roles := &MockRoleRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.Role, error) {
				return &models.Role{ID: id, Name: models.RoleSuperadmin}, nil
			},
		}
		svc := NewRoleService(roles, newTestLogger())

		_, err := svc.UpdateRole(context.Background(), "r1", "renamed")
		assert.ErrorIs(t, err, models.ErrForbidden)

		err = svc.DeleteRole(context.Background(), "r1")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}
