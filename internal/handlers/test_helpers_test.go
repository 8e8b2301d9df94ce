package handlers

import (
	"context"

	"gatehouse/internal/auth"
	"gatehouse/internal/models"
)

// withTestClaims injects token claims the way the auth middleware would.
func withTestClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, auth.UserContextKey, claims)
}

// withTestToken injects a raw bearer token the way the auth middleware would.
func withTestToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, auth.TokenContextKey, token)
}
