package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/pkceauth/internal/models"
	"github.com/iudanet/pkceauth/internal/server/auth"
	"github.com/iudanet/pkceauth/internal/validation"
	"github.com/iudanet/pkceauth/pkg/api"
)

// AuthService операции PKCE потока, нужные HTTP слою
type AuthService interface {
	Login(ctx context.Context, username, password, codeChallenge string) (string, error)
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.TokenPair, error)
	RefreshTokens(ctx context.Context, userID, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger  *slog.Logger
	service AuthService
	cookie  CookieConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, service AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
		cookie:  cookie,
	}
}

// Login обрабатывает POST /auth/login
// Проверяет учетные данные и возвращает одноразовый authorization code
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		SendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateLoginInput(req.Username, req.Password); err != nil {
		SendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateCodeChallenge(req.CodeChallenge); err != nil {
		SendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	code, err := h.service.Login(ctx, req.Username, req.Password, req.CodeChallenge)
	if err != nil {
		h.handleServiceError(ctx, w, "login", err)
		return
	}

	SendJSON(h.logger, w, api.LoginResponse{Code: code}, http.StatusOK)
}

// Token обрабатывает POST /auth/token
// Обменивает code + code_verifier на access token, refresh token уходит в cookie
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode token request", slog.Any("error", err))
		SendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateTokenRequest(req.Code, req.CodeVerifier); err != nil {
		SendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	pair, err := h.service.ExchangeCode(ctx, req.Code, req.CodeVerifier)
	if err != nil {
		h.handleServiceError(ctx, w, "token exchange", err)
		return
	}

	h.cookie.setRefreshCookie(w, pair.RefreshToken)
	SendJSON(h.logger, w, api.AccessTokenResponse{AccessToken: pair.AccessToken}, http.StatusOK)
}

// RefreshToken обрабатывает POST /auth/refresh-token
// Подпись и срок refresh token уже проверены RefreshGuard
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := GetClaims(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "refresh claims not found in context")
		SendUnauthorized(h.logger, w)
		return
	}
	refreshToken, ok := GetRefreshToken(ctx)
	if !ok {
		h.handleServiceError(ctx, w, "refresh", auth.ErrMissingRefreshToken)
		return
	}

	pair, err := h.service.RefreshTokens(ctx, claims.UserID(), refreshToken)
	if err != nil {
		h.handleServiceError(ctx, w, "refresh", err)
		return
	}

	h.cookie.setRefreshCookie(w, pair.RefreshToken)
	SendJSON(h.logger, w, api.AccessTokenResponse{AccessToken: pair.AccessToken}, http.StatusOK)
}

// Logout обрабатывает POST /auth/logout
// Отзывает refresh token и удаляет cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := GetClaims(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "access claims not found in context")
		SendUnauthorized(h.logger, w)
		return
	}

	if err := h.service.Logout(ctx, claims.UserID()); err != nil {
		h.handleServiceError(ctx, w, "logout", err)
		return
	}

	h.cookie.clearRefreshCookie(w)
	SendJSON(h.logger, w, api.MessageResponse{Message: "Logged out"}, http.StatusOK)
}

// Profile обрабатывает GET /auth/profile
// Возвращает claims проверенного access token
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaims(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "access claims not found in context")
		SendUnauthorized(h.logger, w)
		return
	}

	resp := api.ProfileResponse{
		Username: claims.Username,
		Subject:  claims.Subject,
		ID:       claims.ID,
		Issuer:   claims.Issuer,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}

	SendJSON(h.logger, w, resp, http.StatusOK)
}

// handleServiceError отображает ошибку сервиса в HTTP ответ:
// отказ аутентификации -> непрозрачный 401, все остальное -> 500
func (h *AuthHandler) handleServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if auth.IsAuthError(err) {
		h.logger.WarnContext(ctx, op+" rejected", slog.Any("reason", err))
		SendUnauthorized(h.logger, w)
		return
	}

	h.logger.ErrorContext(ctx, op+" failed", slog.Any("error", err))
	SendError(h.logger, w, "internal server error", http.StatusInternalServerError)
}
