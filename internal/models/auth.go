package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload for both access and refresh tokens.
// Refresh tokens carry Refresh=true plus their TTL in seconds; an access
// token presented to the refresh endpoint is rejected on that claim.
type TokenClaims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`
	TTLSeconds int64  `json:"ttl,omitempty"`
	jwt.RegisteredClaims
}
