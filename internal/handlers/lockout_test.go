package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/models"
	"gatehouse/internal/services"
)

type mockLockoutService struct {
	ListLockedUsersFunc func(ctx context.Context, limit, offset int) ([]services.LockedUser, error)
	UnlockUserFunc      func(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error)
}

func (m *mockLockoutService) ListLockedUsers(ctx context.Context, limit, offset int) ([]services.LockedUser, error) {
	return m.ListLockedUsersFunc(ctx, limit, offset)
}

func (m *mockLockoutService) UnlockUser(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error) {
	return m.UnlockUserFunc(ctx, userID, resetLockoutCount)
}

func TestListLockedUsersHandler(t *testing.T) {
	lockedUntil := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	svc := &mockLockoutService{
		ListLockedUsersFunc: func(ctx context.Context, limit, offset int) ([]services.LockedUser, error) {
			assert.Equal(t, 25, limit)
			assert.Equal(t, 50, offset)
			return []services.LockedUser{
				{ID: "u1", Email: "ada@example.com", LockedUntil: &lockedUntil, LockoutCount: 1},
			}, nil
		},
	}
	h := NewLockoutHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/locked-users?limit=25&offset=50", nil)
	rec := httptest.NewRecorder()
	h.ListLockedUsers(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(25), data["limit"])
	assert.Equal(t, float64(50), data["offset"])

	users, ok := data["users"].([]interface{})
	require.True(t, ok)
	require.Len(t, users, 1)
}

func TestListLockedUsersHandler_PaginationDefaults(t *testing.T) {
	svc := &mockLockoutService{
		ListLockedUsersFunc: func(ctx context.Context, limit, offset int) ([]services.LockedUser, error) {
			assert.Equal(t, defaultPageSize, limit)
			assert.Equal(t, 0, offset)
			return nil, nil
		},
	}
	h := NewLockoutHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/locked-users", nil)
	rec := httptest.NewRecorder()
	h.ListLockedUsers(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func unlockRequest(t *testing.T, userID string, body interface{}) *http.Request {
	t.Helper()

	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(http.MethodPost, "/users/"+userID+"/unlock", nil)
	} else {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(http.MethodPost, "/users/"+userID+"/unlock", bytes.NewReader(payload))
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", userID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUnlockUserHandler(t *testing.T) {
	t.Run("defaults to resetting lockout count", func(t *testing.T) {
		var gotReset bool
		svc := &mockLockoutService{
			UnlockUserFunc: func(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error) {
				gotReset = resetLockoutCount
				return &models.User{ID: userID, Email: "ada@example.com"}, nil
			},
		}
		h := NewLockoutHandler(svc)

		rec := httptest.NewRecorder()
		h.UnlockUser(rec, unlockRequest(t, "u1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gotReset)
		assert.Equal(t, "Account unlocked.", decodeEnvelope(t, rec).Message)
	})

	t.Run("honors reset_lockout_count false", func(t *testing.T) {
		var gotReset bool
		svc := &mockLockoutService{
			UnlockUserFunc: func(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error) {
				gotReset = resetLockoutCount
				return &models.User{ID: userID}, nil
			},
		}
		h := NewLockoutHandler(svc)

		reset := false
		rec := httptest.NewRecorder()
		h.UnlockUser(rec, unlockRequest(t, "u1", UnlockRequest{ResetLockoutCount: &reset}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, gotReset)
	})

	t.Run("not locked", func(t *testing.T) {
		svc := &mockLockoutService{
			UnlockUserFunc: func(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error) {
				return nil, models.ErrNotLocked
			},
		}
		h := NewLockoutHandler(svc)

		rec := httptest.NewRecorder()
		h.UnlockUser(rec, unlockRequest(t, "u1", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "This account is not locked.", decodeEnvelope(t, rec).Message)
	})

	t.Run("user not found", func(t *testing.T) {
		svc := &mockLockoutService{
			UnlockUserFunc: func(ctx context.Context, userID string, resetLockoutCount bool) (*models.User, error) {
				return nil, models.ErrNotFound
			},
		}
		h := NewLockoutHandler(svc)

		rec := httptest.NewRecorder()
		h.UnlockUser(rec, unlockRequest(t, "missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
