package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gatehouse/internal/database"
	"gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `
	u.id, u.name, u.last_name, u.email, u.password_hash, u.role_id,
	u.email_verified_at, u.verification_code,
	u.password_reset_token, u.password_reset_expires_at, u.password_changed_at,
	u.failed_login_attempts, u.last_failed_login_at, u.locked_until,
	u.lockout_count, u.last_lockout_at, u.is_permanently_locked,
	u.created_at, u.updated_at,
	r.id, r.name, r.created_at, r.updated_at`

const userFrom = ` FROM users u LEFT JOIN roles r ON r.id = u.role_id`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning user rows (single row or rows iteration)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a
// joined users/roles row.
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string
	var roleID, roleName *string
	var roleCreatedAt, roleUpdatedAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Name, &user.LastName, &user.Email, &passwordHash, &user.RoleID,
		&user.EmailVerifiedAt, &user.VerificationCode,
		&user.PasswordResetToken, &user.PasswordResetExpiresAt, &user.PasswordChangedAt,
		&user.FailedLoginAttempts, &user.LastFailedLoginAt, &user.LockedUntil,
		&user.LockoutCount, &user.LastLockoutAt, &user.IsPermanentlyLocked,
		&user.CreatedAt, &user.UpdatedAt,
		&roleID, &roleName, &roleCreatedAt, &roleUpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	if roleID != nil && roleName != nil {
		user.Role = &models.Role{ID: *roleID, Name: *roleName}
		if roleCreatedAt != nil {
			user.Role.CreatedAt = *roleCreatedAt
		}
		if roleUpdatedAt != nil {
			user.Role.UpdatedAt = *roleUpdatedAt
		}
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT` + userColumns + userFrom + ` WHERE u.id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByEmail looks a user up by email. Emails are stored lowercased, so the
// lookup normalizes its argument to keep the match case-insensitive.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + userFrom + ` WHERE u.email = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT` + userColumns + userFrom + ` ORDER BY u.created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// ListLocked returns users that are permanently locked or hold an unexpired
// temporary lock as of now.
func (r *UserRepository) ListLocked(ctx context.Context, now time.Time, limit, offset int) ([]*models.User, error) {
	query := `SELECT` + userColumns + userFrom + `
		WHERE u.is_permanently_locked = TRUE
		   OR (u.locked_until IS NOT NULL AND u.locked_until > $1)
		ORDER BY u.locked_until DESC NULLS LAST
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Pool.Query(ctx, query, now, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query locked users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, last_name, email, password_hash, role_id, verification_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	_, err := r.db.Pool.Exec(ctx, query,
		user.ID, user.Name, user.LastName, user.Email, passwordHash,
		user.RoleID, user.VerificationCode, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.GetByID(ctx, user.ID)
}

// Update writes profile fields only. Lockout and credential columns have
// dedicated methods so CRUD paths can never touch them.
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $1, last_name = $2, email = $3, role_id = $4,
		    email_verified_at = $5, verification_code = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.Pool.Exec(ctx, query,
		user.Name, user.LastName, strings.ToLower(strings.TrimSpace(user.Email)),
		user.RoleID, user.EmailVerifiedAt, user.VerificationCode, time.Now(), id,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// UpdateLockoutState persists exactly the lockout columns in one statement,
// keeping the read-modify-write on a single row atomic.
func (r *UserRepository) UpdateLockoutState(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET failed_login_attempts = $1, last_failed_login_at = $2,
		    locked_until = $3, lockout_count = $4, last_lockout_at = $5,
		    is_permanently_locked = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.Pool.Exec(ctx, query,
		user.FailedLoginAttempts, user.LastFailedLoginAt,
		user.LockedUntil, user.LockoutCount, user.LastLockoutAt,
		user.IsPermanentlyLocked, time.Now(), user.ID,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_reset_token = NULL,
		    password_reset_expires_at = NULL, password_changed_at = $2, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Pool.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPasswordResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token = $1, password_reset_expires_at = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, token, expiresAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetByResetToken resolves a user by email plus an unexpired reset token.
func (r *UserRepository) GetByResetToken(ctx context.Context, email, token string, now time.Time) (*models.User, error) {
	query := `SELECT` + userColumns + userFrom + `
		WHERE u.email = $1 AND u.password_reset_token = $2
		  AND u.password_reset_expires_at > $3`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)), token, now))
}

func (r *UserRepository) GetByVerificationCode(ctx context.Context, code string) (*models.User, error) {
	query := `SELECT` + userColumns + userFrom + ` WHERE u.verification_code = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, code))
}

func (r *UserRepository) SetVerificationCode(ctx context.Context, id string, code *string) error {
	query := `UPDATE users SET verification_code = $1, email_verified_at = NULL, updated_at = $2 WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, code, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	query := `UPDATE users SET email_verified_at = $1, verification_code = NULL, updated_at = $2 WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, verifiedAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
