// Package api HTTP клиент сервиса аутентификации.
//
// Access token хранится только в памяти клиента, refresh token приходит
// в HttpOnly cookie и живет в cookie jar. На 401 клиент один раз обновляет
// токены через /auth/refresh-token и повторяет исходный запрос.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/pkceauth/internal/crypto"
	"github.com/iudanet/pkceauth/pkg/api"
)

// Пути API сервера
const (
	PathLogin        = "/auth/login"
	PathToken        = "/auth/token"
	PathRefreshToken = "/auth/refresh-token"
	PathLogout       = "/auth/logout"
	PathProfile      = "/auth/profile"
	PathHealth       = "/health"

	// RefreshCookieName имя cookie с refresh token
	RefreshCookieName = "refresh_token"
)

var (
	// ErrUnauthorized сервер ответил 401
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired обновить сессию не удалось, нужен повторный вход
	ErrSessionExpired = errors.New("session expired, please login again")
)

// Error ответ сервера с кодом не 2xx
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is позволяет сравнивать 401 с ErrUnauthorized через errors.Is
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// CookieJar cookie jar с возможностью очистки
type CookieJar interface {
	http.CookieJar
	Has(u *url.URL, name string) bool
	Clear(u *url.URL)
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	jar        CookieJar
	base       *url.URL
	baseURL    string

	mu          sync.RWMutex
	accessToken string
	username    string

	// refreshMu не дает двум запросам одновременно тратить один refresh token
	refreshMu sync.Mutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string, jar CookieJar, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}

	return &Client{
		baseURL: baseURL,
		base:    base,
		jar:     jar,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}, nil
}

// AccessToken текущий access token (пустой, если сессии в памяти нет)
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Username имя пользователя текущей сессии
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// HasRefreshCookie сообщает, сохранен ли refresh token для сервера
func (c *Client) HasRefreshCookie() bool {
	return c.jar.Has(c.base, RefreshCookieName)
}

// Login выполняет PKCE вход: login -> token -> profile
func (c *Client) Login(ctx context.Context, username, password string) (*api.ProfileResponse, error) {
	verifier, err := crypto.GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	var loginResp api.LoginResponse
	loginReq := api.LoginRequest{
		Username:      username,
		Password:      password,
		CodeChallenge: crypto.CodeChallengeS256(verifier),
	}
	if err := c.doRequest(ctx, http.MethodPost, PathLogin, "", loginReq, &loginResp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	var tokenResp api.AccessTokenResponse
	tokenReq := api.TokenRequest{Code: loginResp.Code, CodeVerifier: verifier}
	if err := c.doRequest(ctx, http.MethodPost, PathToken, "", tokenReq, &tokenResp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	c.setSession(tokenResp.AccessToken, username)

	profile, err := c.Profile(ctx)
	if err != nil {
		return nil, err
	}
	c.setSession(tokenResp.AccessToken, profile.Username)
	return profile, nil
}

// Profile запрашивает профиль текущего пользователя
func (c *Client) Profile(ctx context.Context) (*api.ProfileResponse, error) {
	var profile api.ProfileResponse
	if err := c.doAuthRequest(ctx, http.MethodGet, PathProfile, nil, &profile); err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}

	c.mu.Lock()
	c.username = profile.Username
	c.mu.Unlock()

	return &profile, nil
}

// Refresh обновляет пару токенов по refresh cookie.
// При отказе сервера сессия очищается.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	return c.refreshLocked(ctx)
}

// Logout отзывает сессию на сервере и всегда очищает локальное состояние
func (c *Client) Logout(ctx context.Context) error {
	var resp api.MessageResponse
	err := c.doAuthRequest(ctx, http.MethodPost, PathLogout, nil, &resp)

	c.clearSession()
	c.jar.Clear(c.base)

	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, PathHealth, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// refreshLocked вызывается под refreshMu
func (c *Client) refreshLocked(ctx context.Context) error {
	var resp api.AccessTokenResponse
	err := c.doRequest(ctx, http.MethodPost, PathRefreshToken, "", nil, &resp)
	if err != nil {
		c.clearSession()
		if errors.Is(err, ErrUnauthorized) {
			// refresh token отвергнут: хранить его дальше бессмысленно
			c.jar.Clear(c.base)
			c.logger.Debug("refresh rejected, session cleared")
			return ErrSessionExpired
		}
		return fmt.Errorf("refresh request failed: %w", err)
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.mu.Unlock()

	return nil
}

// doAuthRequest выполняет запрос с bearer токеном. На 401 выполняет не более
// одного обновления токенов и один повтор запроса.
func (c *Client) doAuthRequest(ctx context.Context, method, path string, body, result any) error {
	token := c.AccessToken()

	err := c.doRequest(ctx, method, path, token, body, result)
	if err == nil || !errors.Is(err, ErrUnauthorized) || path == PathRefreshToken {
		return err
	}

	c.refreshMu.Lock()
	// другой запрос мог уже обновить токен, пока мы ждали
	if current := c.AccessToken(); current == "" || current == token {
		if err := c.refreshLocked(ctx); err != nil {
			c.refreshMu.Unlock()
			return err
		}
	}
	c.refreshMu.Unlock()

	return c.doRequest(ctx, method, path, c.AccessToken(), body, result)
}

func (c *Client) setSession(accessToken, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.username = username
}

func (c *Client) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.username = ""
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
		}
		return apiErr
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
