package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/models"
	"gatehouse/internal/services"
	pkghttp "gatehouse/pkg/http"
)

type mockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	LogoutFunc         func(ctx context.Context, accessToken string) error
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, accessToken string) error {
	return m.LogoutFunc(ctx, accessToken)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) pkghttp.Response {
	t.Helper()
	var resp pkghttp.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.LoginResult, error) {
			return nil, models.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/login", LoginRequest{Email: "user@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid credentials.", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestLoginHandler_TemporarilyLocked(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.LoginResult, error) {
			return nil, &services.AccountLockedError{MinutesRemaining: 60}
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/login", LoginRequest{Email: "user@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t,
		"Your account is temporarily locked due to multiple failed login attempts. Please try again in 60 minutes or contact an administrator.",
		resp.Message)
}

func TestLoginHandler_PermanentlyLocked(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.LoginResult, error) {
			return nil, &services.AccountLockedError{Permanent: true}
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/login", LoginRequest{Email: "user@example.com", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t,
		"Your account has been permanently locked due to multiple failed login attempts. Please contact an administrator.",
		resp.Message)
}

func TestLoginHandler_Success(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.LoginResult, error) {
			assert.Equal(t, "user@example.com", email)
			return &services.LoginResult{
				AccessToken:      "access",
				RefreshToken:     "refresh",
				TokenType:        "bearer",
				ExpiresIn:        900,
				RefreshExpiresIn: 604800,
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/login", LoginRequest{Email: "user@example.com", Password: "Correct#Pass1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "access", data["access_token"])
	assert.Equal(t, "refresh", data["refresh_token"])
	assert.Equal(t, float64(900), data["expires_in"])
}

func TestLoginHandler_ValidationFailures(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	tests := []struct {
		name string
		body LoginRequest
	}{
		{"missing email", LoginRequest{Password: "something"}},
		{"malformed email", LoginRequest{Email: "not-an-email", Password: "something"}},
		{"missing password", LoginRequest{Email: "user@example.com"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.Login, "/login", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRefreshHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing token", models.ErrMissingToken, http.StatusUnauthorized, "Refresh token is required."},
		{"not a refresh token", models.ErrNotRefreshToken, http.StatusUnauthorized, "Provided token is not a refresh token."},
		{"invalid token", models.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired token."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthService{
				RefreshFunc: func(ctx context.Context, refreshToken string) (*services.RefreshResult, error) {
					return nil, tc.err
				},
			}
			h := NewAuthHandler(svc)

			rec := postJSON(t, h.Refresh, "/refresh", RefreshRequest{RefreshToken: "whatever"})
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantMsg, decodeEnvelope(t, rec).Message)
		})
	}

	t.Run("success", func(t *testing.T) {
		svc := &mockAuthService{
			RefreshFunc: func(ctx context.Context, refreshToken string) (*services.RefreshResult, error) {
				return &services.RefreshResult{AccessToken: "new-access", TokenType: "bearer", ExpiresIn: 900}, nil
			},
		}
		h := NewAuthHandler(svc)

		rec := postJSON(t, h.Refresh, "/refresh", RefreshRequest{RefreshToken: "refresh"})
		assert.Equal(t, http.StatusOK, rec.Code)

		data, ok := decodeEnvelope(t, rec).Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "new-access", data["access_token"])
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthService{})

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revokes the bearer token", func(t *testing.T) {
		var revoked string
		svc := &mockAuthService{
			LogoutFunc: func(ctx context.Context, accessToken string) error {
				revoked = accessToken
				return nil
			},
		}
		h := NewAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req = req.WithContext(withTestToken(req.Context(), "the-access-token"))
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "the-access-token", revoked)
		assert.Equal(t, "Logged out successfully.", decodeEnvelope(t, rec).Message)
	})
}

func TestChangePasswordHandler(t *testing.T) {
	claims := &models.TokenClaims{UserID: "u1", Email: "user@example.com"}

	newRequest := func(t *testing.T, body ChangePasswordRequest) *http.Request {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/change-password", bytes.NewReader(payload))
		return req.WithContext(withTestClaims(req.Context(), claims))
	}

	t.Run("wrong current password", func(t *testing.T) {
		svc := &mockAuthService{
			ChangePasswordFunc: func(ctx context.Context, userID, currentPassword, newPassword string) error {
				return models.ErrCurrentPasswordIncorrect
			},
		}
		h := NewAuthHandler(svc)

		rec := httptest.NewRecorder()
		h.ChangePassword(rec, newRequest(t, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "New#Password123"}))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Current password is incorrect.", decodeEnvelope(t, rec).Message)
	})

	t.Run("success", func(t *testing.T) {
		var gotUserID string
		svc := &mockAuthService{
			ChangePasswordFunc: func(ctx context.Context, userID, currentPassword, newPassword string) error {
				gotUserID = userID
				return nil
			},
		}
		h := NewAuthHandler(svc)

		rec := httptest.NewRecorder()
		h.ChangePassword(rec, newRequest(t, ChangePasswordRequest{CurrentPassword: "Current#Pass1", NewPassword: "New#Password123"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", gotUserID)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthService{})

		payload, _ := json.Marshal(ChangePasswordRequest{CurrentPassword: "a", NewPassword: "b"})
		req := httptest.NewRequest(http.MethodPost, "/change-password", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		h.ChangePassword(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
