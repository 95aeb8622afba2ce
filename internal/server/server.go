// Package server собирает HTTP сервис аутентификации: хранилища, сервисы,
// маршруты и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/iudanet/pkceauth/internal/server/auth"
	"github.com/iudanet/pkceauth/internal/server/authcode"
	"github.com/iudanet/pkceauth/internal/server/config"
	"github.com/iudanet/pkceauth/internal/server/handlers"
	"github.com/iudanet/pkceauth/internal/server/jwt"
	"github.com/iudanet/pkceauth/internal/server/storage"
	"github.com/iudanet/pkceauth/internal/server/storage/postgres"
	"github.com/iudanet/pkceauth/internal/server/storage/sqlite"
)

// UserStore хранилище пользователей с проверкой доступности
type UserStore interface {
	storage.UserStorage
	Ping(ctx context.Context) error
	Close() error
}

// OpenUserStorage открывает хранилище пользователей по конфигурации
func OpenUserStorage(ctx context.Context, cfg config.StorageConfig) (UserStore, error) {
	var (
		store UserStore
		err   error
	)
	switch cfg.Driver {
	case config.StorageSQLite:
		store, err = sqlite.New(ctx, cfg.DSN)
	case config.StoragePostgres:
		store, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// CodeStore хранилище authorization codes и функция его остановки
type CodeStore struct {
	authcode.Store
	closer io.Closer
}

// Close освобождает ресурсы хранилища кодов
func (c *CodeStore) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// OpenCodeStore создает хранилище кодов. Для memory бэкенда запускает
// фоновую очистку, которая останавливается вместе с ctx.
func OpenCodeStore(ctx context.Context, logger *slog.Logger, cfg config.CodesConfig, clock clockwork.Clock) (*CodeStore, error) {
	switch cfg.Backend {
	case config.CodesMemory:
		store := authcode.NewMemoryStore(clock, cfg.TTL)
		go store.Run(ctx, cfg.SweepInterval, logger)
		return &CodeStore{Store: store}, nil

	case config.CodesRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &CodeStore{Store: authcode.NewRedisStore(client, "", cfg.TTL), closer: client}, nil

	default:
		return nil, fmt.Errorf("unknown codes backend %q", cfg.Backend)
	}
}

// Server HTTP сервер аутентификации
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	users      UserStore
	codes      *CodeStore
	cfg        config.HTTPConfig
}

// New собирает сервер по конфигурации: открывает хранилища, создает
// пользователя из seed и строит маршруты. Close освобождает ресурсы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*Server, error) {
	clock := clockwork.NewRealClock()

	users, err := OpenUserStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open user storage: %w", err)
	}

	codes, err := OpenCodeStore(ctx, logger, cfg.Codes, clock)
	if err != nil {
		_ = users.Close()
		return nil, fmt.Errorf("failed to open code store: %w", err)
	}

	tokens, err := jwt.NewService(jwt.Config{
		AccessSecret:    []byte(cfg.JWT.AccessSecret),
		RefreshSecret:   []byte(cfg.JWT.RefreshSecret),
		Issuer:          cfg.JWT.Issuer,
		AccessTokenTTL:  cfg.JWT.AccessTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTTL,
	}, clock)
	if err != nil {
		_ = codes.Close()
		_ = users.Close()
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	authService := auth.NewService(logger, users, codes, tokens)

	if cfg.Seed.Username != "" {
		if err := authService.EnsureUser(ctx, cfg.Seed.Username, cfg.Seed.Password); err != nil {
			_ = codes.Close()
			_ = users.Close()
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}
	}

	router := NewRouter(RouterOptions{
		Logger: logger,
		Auth:   authService,
		Pinger: users,
		Cookie: handlers.CookieConfig{
			Name:   cfg.Cookie.Name,
			MaxAge: tokens.RefreshTokenTTL(),
			Secure: cfg.Cookie.Secure,
		},
		Version: version,
	})

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		users: users,
		codes: codes,
		cfg:   cfg.HTTP,
	}, nil
}

// Handler возвращает корневой обработчик (для тестов)
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run слушает адрес из конфигурации до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает ln до отмены ctx, затем выполняет graceful shutdown
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// Close закрывает хранилища
func (s *Server) Close() error {
	return errors.Join(s.codes.Close(), s.users.Close())
}
