package handlers

import (
	"context"

	"github.com/iudanet/pkceauth/internal/server/jwt"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// ClaimsKey ключ для хранения проверенных claims в контексте
	ClaimsKey contextKey = "claims"
	// RefreshTokenKey ключ для хранения сырого refresh token из cookie
	RefreshTokenKey contextKey = "refresh_token"
)

// WithClaims кладет claims в контекст (устанавливается middleware)
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims извлекает claims из контекста запроса
func GetClaims(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims)
	return claims, ok && claims != nil
}

// WithRefreshToken кладет refresh token в контекст
func WithRefreshToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, RefreshTokenKey, token)
}

// GetRefreshToken извлекает refresh token из контекста запроса
func GetRefreshToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(RefreshTokenKey).(string)
	return token, ok && token != ""
}
