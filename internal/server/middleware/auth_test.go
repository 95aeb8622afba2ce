package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pkceauth/internal/server/handlers"
	"github.com/iudanet/pkceauth/internal/server/jwt"
	"github.com/iudanet/pkceauth/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func setupTestTokens(t *testing.T) (*jwt.Service, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	svc, err := jwt.NewService(jwt.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}, clock)
	require.NoError(t, err)
	return svc, clock
}

// testHandler is a simple handler that checks context values
func testHandler(t *testing.T, expectedUserID, expectedUsername string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := handlers.GetClaims(r.Context())
		require.True(t, ok, "claims should be in context")
		assert.Equal(t, expectedUserID, claims.UserID())
		assert.Equal(t, expectedUsername, claims.Username)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func assertOpaque401(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, api.ErrorResponse{Error: "Unauthorized", Message: "unauthorized"}, resp)
}

func TestBearerAuth_Success(t *testing.T) {
	tokens, _ := setupTestTokens(t)

	token, err := tokens.GenerateAccessToken("user123", "testuser")
	require.NoError(t, err)

	handler := BearerAuth(setupTestLogger(), tokens)(testHandler(t, "user123", "testuser"))

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestBearerAuth_Rejects(t *testing.T) {
	tokens, _ := setupTestTokens(t)

	refreshToken, err := tokens.GenerateRefreshToken("user123", "testuser")
	require.NoError(t, err)

	foreign, err := jwt.NewService(jwt.Config{
		AccessSecret:  []byte("other-access"),
		RefreshSecret: []byte("other-refresh"),
	}, clockwork.NewFakeClock())
	require.NoError(t, err)
	foreignToken, err := foreign.GenerateAccessToken("user123", "testuser")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "no token", header: "Bearer "},
		{name: "no separator", header: "Bearertoken"},
		{name: "garbage token", header: "Bearer not.a.jwt"},
		{name: "refresh token as access", header: "Bearer " + refreshToken},
		{name: "wrong secret", header: "Bearer " + foreignToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := BearerAuth(setupTestLogger(), tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.False(t, called, "next handler must not be called")
			assertOpaque401(t, w)
		})
	}
}

func TestBearerAuth_ExpiredToken(t *testing.T) {
	tokens, clock := setupTestTokens(t)

	token, err := tokens.GenerateAccessToken("user123", "testuser")
	require.NoError(t, err)

	clock.Advance(tokens.AccessTokenTTL() + time.Second)

	handler := BearerAuth(setupTestLogger(), tokens)(testHandler(t, "user123", "testuser"))
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assertOpaque401(t, w)
}

func TestRefreshGuard(t *testing.T) {
	tokens, clock := setupTestTokens(t)
	cookie := handlers.CookieConfig{}

	refreshToken, err := tokens.GenerateRefreshToken("user123", "testuser")
	require.NoError(t, err)
	accessToken, err := tokens.GenerateAccessToken("user123", "testuser")
	require.NoError(t, err)

	t.Run("valid cookie", func(t *testing.T) {
		handler := RefreshGuard(setupTestLogger(), tokens, cookie)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := handlers.GetClaims(r.Context())
			require.True(t, ok)
			assert.Equal(t, "user123", claims.UserID())

			raw, ok := handlers.GetRefreshToken(r.Context())
			require.True(t, ok)
			assert.Equal(t, refreshToken, raw)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: handlers.DefaultRefreshCookieName, Value: refreshToken})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	reject := func(t *testing.T, req *http.Request) {
		t.Helper()
		handler := RefreshGuard(setupTestLogger(), tokens, cookie)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not be called")
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assertOpaque401(t, w)
	}

	t.Run("missing cookie", func(t *testing.T) {
		reject(t, httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil))
	})

	t.Run("access token in cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: handlers.DefaultRefreshCookieName, Value: accessToken})
		reject(t, req)
	})

	t.Run("expired", func(t *testing.T) {
		clock.Advance(tokens.RefreshTokenTTL() + time.Second)
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil)
		req.AddCookie(&http.Cookie{Name: handlers.DefaultRefreshCookieName, Value: refreshToken})
		reject(t, req)
	})
}
