package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("token is required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotRefreshToken    = errors.New("token does not have refresh claim")

	// Lockout state errors
	ErrAccountLocked            = errors.New("account is temporarily locked")
	ErrAccountPermanentlyLocked = errors.New("account is permanently locked")
	ErrNotLocked                = errors.New("account is not locked")

	// Password errors
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrPasswordUnchanged        = errors.New("new password must differ from current password")
	ErrResetTokenInvalid        = errors.New("invalid or expired password reset token")

	// Verification errors
	ErrAlreadyVerified         = errors.New("email address already verified")
	ErrInvalidVerificationCode = errors.New("invalid verification code")

	// Role protection errors
	ErrSuperadminProtected = errors.New("only superadmins can modify superadmin accounts")
)
