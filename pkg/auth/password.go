package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14 // OWASP 2026 recommendation
	MaxPasswordLen = 128

	resetTokenLen          = 60
	verificationCodeBytes  = 16
	resetTokenAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Policy holds the configurable strong-password requirements: minimum
// length, at least one uppercase letter, one digit, and one character from
// the special set.
type Policy struct {
	MinLength    int
	SpecialChars string
}

// PolicyError reports which requirements a candidate password failed.
type PolicyError struct {
	Failures []string
}

func (e *PolicyError) Error() string {
	if len(e.Failures) == 0 {
		return "password does not meet requirements"
	}
	return "password " + strings.Join(e.Failures, ", ")
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword checks a candidate password against the policy.
func ValidatePassword(password string, policy Policy) error {
	var failures []string

	if len(password) < policy.MinLength {
		failures = append(failures, fmt.Sprintf("must be at least %d characters", policy.MinLength))
	}
	if len(password) > MaxPasswordLen {
		failures = append(failures, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(policy.SpecialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		failures = append(failures, "must contain at least one uppercase letter")
	}
	if !hasDigit {
		failures = append(failures, "must contain at least one number")
	}
	if !hasSpecial {
		failures = append(failures, "must contain at least one special character")
	}

	if len(failures) > 0 {
		return &PolicyError{Failures: failures}
	}
	return nil
}

// GenerateResetToken returns a 60-character alphanumeric token for password
// reset links.
func GenerateResetToken() (string, error) {
	max := big.NewInt(int64(len(resetTokenAlphabet)))
	b := make([]byte, resetTokenLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reset token: %w", err)
		}
		b[i] = resetTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}

// GenerateVerificationCode returns a 32-character hex code for email
// verification links.
func GenerateVerificationCode() (string, error) {
	buf := make([]byte, verificationCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
