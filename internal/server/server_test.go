package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pkceauth/internal/crypto"
	"github.com/iudanet/pkceauth/internal/server/config"
	"github.com/iudanet/pkceauth/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP:    config.HTTPConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Storage: config.StorageConfig{Driver: config.StorageSQLite, DSN: ":memory:"},
		Codes: config.CodesConfig{
			Backend:       config.CodesMemory,
			TTL:           5 * time.Minute,
			SweepInterval: time.Minute,
		},
		JWT: config.JWTConfig{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Cookie: config.CookieConfig{Name: "refresh_token"},
		Seed:   config.SeedConfig{Username: "testuser", Password: "Test@1234"},
	}
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := New(ctx, testConfig(), setupTestLogger(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func withBearer(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("refresh_token cookie not set")
	return nil
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// loginFlow выполняет login + token и возвращает access token и refresh cookie
func loginFlow(t *testing.T, baseURL string) (string, *http.Cookie) {
	t.Helper()

	resp := postJSON(t, baseURL+"/auth/login", api.LoginRequest{
		Username:      "testuser",
		Password:      "Test@1234",
		CodeChallenge: crypto.CodeChallengeS256("verifier123"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := decode[api.LoginResponse](t, resp).Code
	require.NotEmpty(t, code)

	resp = postJSON(t, baseURL+"/auth/token", api.TokenRequest{Code: code, CodeVerifier: "verifier123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := decode[api.AccessTokenResponse](t, resp).AccessToken
	require.NotEmpty(t, access)

	cookie := refreshCookie(t, resp)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	return access, cookie
}

func TestServer_PKCEFlow(t *testing.T) {
	ts := setupTestServer(t)

	access, cookie := loginFlow(t, ts.URL)

	// Профиль по access token
	resp := withBearer(t, http.MethodGet, ts.URL+"/auth/profile", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[api.ProfileResponse](t, resp)
	assert.Equal(t, "testuser", profile.Username)
	assert.NotEmpty(t, profile.Subject)
	assert.NotEmpty(t, profile.ID)

	// Refresh возвращает другие access и refresh
	resp = postJSON(t, ts.URL+"/auth/refresh-token", nil, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newAccess := decode[api.AccessTokenResponse](t, resp).AccessToken
	newCookie := refreshCookie(t, resp)
	assert.NotEqual(t, access, newAccess)
	assert.NotEqual(t, cookie.Value, newCookie.Value)

	// Старый refresh cookie больше не действует
	resp = postJSON(t, ts.URL+"/auth/refresh-token", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logout очищает cookie
	resp = withBearer(t, http.MethodPost, ts.URL+"/auth/logout", newAccess)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out", decode[api.MessageResponse](t, resp).Message)
	assert.Negative(t, refreshCookie(t, resp).MaxAge)

	// После logout refresh отклоняется
	resp = postJSON(t, ts.URL+"/auth/refresh-token", nil, newCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_CodeIsSingleUse(t *testing.T) {
	ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/auth/login", api.LoginRequest{
		Username:      "testuser",
		Password:      "Test@1234",
		CodeChallenge: crypto.CodeChallengeS256("verifier123"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := decode[api.LoginResponse](t, resp).Code

	resp = postJSON(t, ts.URL+"/auth/token", api.TokenRequest{Code: code, CodeVerifier: "verifier123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/auth/token", api.TokenRequest{Code: code, CodeVerifier: "verifier123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_OpaqueUnauthorized(t *testing.T) {
	ts := setupTestServer(t)
	challenge := crypto.CodeChallengeS256("verifier123")

	wrongPassword := postJSON(t, ts.URL+"/auth/login", api.LoginRequest{
		Username: "testuser", Password: "Wrong@1234", CodeChallenge: challenge,
	})
	unknownUser := postJSON(t, ts.URL+"/auth/login", api.LoginRequest{
		Username: "nobody", Password: "Test@1234", CodeChallenge: challenge,
	})
	badCode := postJSON(t, ts.URL+"/auth/token", api.TokenRequest{Code: "nope", CodeVerifier: "verifier123"})
	noCookie := postJSON(t, ts.URL+"/auth/refresh-token", nil)
	noBearer := postJSON(t, ts.URL+"/auth/logout", nil)

	for _, resp := range []*http.Response{wrongPassword, unknownUser, badCode, noCookie, noBearer} {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, api.ErrorResponse{Error: "Unauthorized", Message: "unauthorized"},
			decode[api.ErrorResponse](t, resp))
	}
}

func TestServer_Health(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, api.HealthResponse{Status: "ok", Version: "test"}, decode[api.HealthResponse](t, resp))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/auth/login")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_ServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := New(ctx, testConfig(), setupTestLogger(), "test")
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_InvalidSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = config.SeedConfig{Username: "x", Password: "Test@1234"}

	_, err := New(context.Background(), cfg, setupTestLogger(), "test")
	assert.Error(t, err)
}

func TestOpenUserStorage_UnknownDriver(t *testing.T) {
	_, err := OpenUserStorage(context.Background(), config.StorageConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestOpenCodeStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := OpenCodeStore(ctx, setupTestLogger(), config.CodesConfig{
		Backend:   config.CodesRedis,
		RedisAddr: mr.Addr(),
		TTL:       5 * time.Minute,
	}, clockwork.NewRealClock())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	code, err := store.Issue(ctx, "user-1", crypto.CodeChallengeS256("verifier123"))
	require.NoError(t, err)

	pending, err := store.Consume(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "user-1", pending.UserID)
}

func TestOpenCodeStore_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenCodeStore(context.Background(), setupTestLogger(), config.CodesConfig{
		Backend:   config.CodesRedis,
		RedisAddr: addr,
		TTL:       time.Minute,
	}, clockwork.NewRealClock())
	assert.Error(t, err)
}
