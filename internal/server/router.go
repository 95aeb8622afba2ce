package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/pkceauth/internal/server/auth"
	"github.com/iudanet/pkceauth/internal/server/handlers"
	"github.com/iudanet/pkceauth/internal/server/middleware"
)

// RouterOptions зависимости HTTP слоя
type RouterOptions struct {
	Logger  *slog.Logger
	Auth    *auth.Service
	Pinger  handlers.Pinger
	Cookie  handlers.CookieConfig
	Version string
}

// NewRouter собирает маршруты сервиса:
//
//	GET  /health
//	POST /auth/login
//	POST /auth/token
//	POST /auth/refresh-token  (refresh cookie)
//	POST /auth/logout         (bearer)
//	GET  /auth/profile        (bearer)
func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	tokens := opts.Auth.Tokens()

	authHandler := handlers.NewAuthHandler(logger, opts.Auth, opts.Cookie)
	healthHandler := handlers.NewHealthHandler(logger, opts.Pinger, opts.Version)

	bearer := middleware.BearerAuth(logger, tokens)
	refreshGuard := middleware.RefreshGuard(logger, tokens, opts.Cookie)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/token", authHandler.Token)
	mux.Handle("POST /auth/refresh-token", refreshGuard(http.HandlerFunc(authHandler.RefreshToken)))
	mux.Handle("POST /auth/logout", bearer(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /auth/profile", bearer(http.HandlerFunc(authHandler.Profile)))

	var handler http.Handler = mux
	handler = middleware.Logging(logger, "/health")(handler)
	handler = middleware.Recovery(logger)(handler)
	return handler
}
