package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"gatehouse/internal/models"
	pkglogger "gatehouse/pkg/logger"
)

// MockUserRepository is a function-field mock of UserRepository. Tests set
// only the fields the code under test is expected to call.
type MockUserRepository struct {
	GetByIDFunc               func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc            func(ctx context.Context, email string) (*models.User, error)
	ListFunc                  func(ctx context.Context, limit, offset int) ([]*models.User, error)
	ListLockedFunc            func(ctx context.Context, now time.Time, limit, offset int) ([]*models.User, error)
	CreateFunc                func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc                func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdateLockoutStateFunc    func(ctx context.Context, user *models.User) error
	UpdatePasswordFunc        func(ctx context.Context, id, passwordHash string) error
	SetPasswordResetTokenFunc func(ctx context.Context, id, token string, expiresAt time.Time) error
	GetByResetTokenFunc       func(ctx context.Context, email, token string, now time.Time) (*models.User, error)
	GetByVerificationCodeFunc func(ctx context.Context, code string) (*models.User, error)
	SetVerificationCodeFunc   func(ctx context.Context, id string, code *string) error
	MarkEmailVerifiedFunc     func(ctx context.Context, id string, verifiedAt time.Time) error
	DeleteFunc                func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockUserRepository) ListLocked(ctx context.Context, now time.Time, limit, offset int) ([]*models.User, error) {
	return m.ListLockedFunc(ctx, now, limit, offset)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return m.CreateFunc(ctx, user)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	return m.UpdateFunc(ctx, id, user)
}

func (m *MockUserRepository) UpdateLockoutState(ctx context.Context, user *models.User) error {
	return m.UpdateLockoutStateFunc(ctx, user)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.UpdatePasswordFunc(ctx, id, passwordHash)
}

func (m *MockUserRepository) SetPasswordResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	return m.SetPasswordResetTokenFunc(ctx, id, token, expiresAt)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, email, token string, now time.Time) (*models.User, error) {
	return m.GetByResetTokenFunc(ctx, email, token, now)
}

func (m *MockUserRepository) GetByVerificationCode(ctx context.Context, code string) (*models.User, error) {
	return m.GetByVerificationCodeFunc(ctx, code)
}

func (m *MockUserRepository) SetVerificationCode(ctx context.Context, id string, code *string) error {
	return m.SetVerificationCodeFunc(ctx, id, code)
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	return m.MarkEmailVerifiedFunc(ctx, id, verifiedAt)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// MockRoleRepository is a function-field mock of RoleRepository.
type MockRoleRepository struct {
	GetByIDFunc   func(ctx context.Context, id string) (*models.Role, error)
	GetByNameFunc func(ctx context.Context, name string) (*models.Role, error)
	ListFunc      func(ctx context.Context) ([]*models.Role, error)
	CreateFunc    func(ctx context.Context, role *models.Role) (*models.Role, error)
	UpdateFunc    func(ctx context.Context, id, name string) (*models.Role, error)
	DeleteFunc    func(ctx context.Context, id string) error
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return m.GetByNameFunc(ctx, name)
}

func (m *MockRoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	return m.ListFunc(ctx)
}

func (m *MockRoleRepository) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	return m.CreateFunc(ctx, role)
}

func (m *MockRoleRepository) Update(ctx context.Context, id, name string) (*models.Role, error) {
	return m.UpdateFunc(ctx, id, name)
}

func (m *MockRoleRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// MockTokenRevocationRepository is a function-field mock of TokenRevocationRepository.
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error {
	return m.RevokeTokenFunc(ctx, jti, userID, expiresAt, reason)
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return m.IsTokenRevokedFunc(ctx, jti)
}

// MockMailer records sends so tests can assert notifications fired. Sends
// happen on goroutines, so access is mutex guarded.
type MockMailer struct {
	mu    sync.Mutex
	sends []string
}

func (m *MockMailer) record(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, kind)
}

// Sends returns a copy of the recorded send kinds.
func (m *MockMailer) Sends() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sends))
	copy(out, m.sends)
	return out
}

func (m *MockMailer) SendAccountLocked(ctx context.Context, email string, permanent bool, duration time.Duration) error {
	m.record("account_locked")
	return nil
}

func (m *MockMailer) SendPasswordChanged(ctx context.Context, email string) error {
	m.record("password_changed")
	return nil
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.record("password_reset")
	return nil
}

func (m *MockMailer) SendVerification(ctx context.Context, email, code string) error {
	m.record("verification")
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(newTestLogger())
}
