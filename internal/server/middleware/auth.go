package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/pkceauth/internal/server/handlers"
	"github.com/iudanet/pkceauth/internal/server/jwt"
)

// AccessValidator проверяет access token
type AccessValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// RefreshValidator проверяет refresh token
type RefreshValidator interface {
	ValidateRefreshToken(token string) (*jwt.Claims, error)
}

// BearerAuth создает middleware для проверки access token из заголовка Authorization.
// Проверенные claims кладутся в контекст запроса.
func BearerAuth(logger *slog.Logger, validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Ожидаем формат: "Bearer <token>"
			authHeader := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(authHeader, " ")
			if authHeader == "" || !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				logger.WarnContext(ctx, "missing or malformed Authorization header")
				handlers.SendUnauthorized(logger, w)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				logger.WarnContext(ctx, "invalid access token", slog.Any("reason", err))
				handlers.SendUnauthorized(logger, w)
				return
			}

			logger.DebugContext(ctx, "user authenticated",
				slog.String("user_id", claims.UserID()),
				slog.String("username", claims.Username),
			)

			next.ServeHTTP(w, r.WithContext(handlers.WithClaims(ctx, claims)))
		})
	}
}

// RefreshGuard создает middleware для проверки refresh token из cookie.
// Подпись и срок действия проверяются до любого обращения к хранилищу.
func RefreshGuard(logger *slog.Logger, validator RefreshValidator, cookie handlers.CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := cookie.RefreshTokenFromRequest(r)
			if !ok {
				logger.WarnContext(ctx, "missing refresh token cookie")
				handlers.SendUnauthorized(logger, w)
				return
			}

			claims, err := validator.ValidateRefreshToken(token)
			if err != nil {
				logger.WarnContext(ctx, "invalid refresh token", slog.Any("reason", err))
				handlers.SendUnauthorized(logger, w)
				return
			}

			ctx = handlers.WithClaims(ctx, claims)
			ctx = handlers.WithRefreshToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
