// Package auth реализует обмен authorization code с PKCE и ротацию refresh token.
//
// Поток: ValidateUser -> GenerateAuthCode -> ExchangeCode (PKCE) -> IssueTokens
// -> RefreshTokens (повторяется) -> Logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iudanet/pkceauth/internal/crypto"
	"github.com/iudanet/pkceauth/internal/models"
	"github.com/iudanet/pkceauth/internal/server/authcode"
	"github.com/iudanet/pkceauth/internal/server/jwt"
	"github.com/iudanet/pkceauth/internal/server/storage"
	"github.com/iudanet/pkceauth/internal/validation"
)

// Service сервис аутентификации
type Service struct {
	logger *slog.Logger
	users  storage.UserStorage
	codes  authcode.Store
	tokens *jwt.Service
}

// NewService создает сервис аутентификации
func NewService(logger *slog.Logger, users storage.UserStorage, codes authcode.Store, tokens *jwt.Service) *Service {
	return &Service{
		logger: logger,
		users:  users,
		codes:  codes,
		tokens: tokens,
	}
}

// Tokens возвращает JWT сервис (нужен middleware для проверки подписи)
func (s *Service) Tokens() *jwt.Service {
	return s.tokens
}

// ValidateUser проверяет username/password.
// Возвращает пользователя без хешей или nil, если совпадения нет.
// Ошибка возвращается только при сбое хранилища.
func (s *Service) ValidateUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// одно bcrypt сравнение на обоих путях отказа
			crypto.BurnPasswordCheck(password)
			s.logger.WarnContext(ctx, "credential check failed: user not found", slog.String("username", username))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "credential check failed: wrong password", slog.String("username", username))
		return nil, nil
	}

	return user.Sanitized(), nil
}

// GenerateAuthCode выдает одноразовый код для пользователя и PKCE challenge
func (s *Service) GenerateAuthCode(ctx context.Context, user *models.User, codeChallenge string) (string, error) {
	code, err := s.codes.Issue(ctx, user.ID, codeChallenge)
	if err != nil {
		return "", fmt.Errorf("failed to issue authorization code: %w", err)
	}
	return code, nil
}

// Login проверяет учетные данные и выдает authorization code
func (s *Service) Login(ctx context.Context, username, password, codeChallenge string) (string, error) {
	user, err := s.ValidateUser(ctx, username, password)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	code, err := s.GenerateAuthCode(ctx, user, codeChallenge)
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "authorization code issued", slog.String("user_id", user.ID))
	return code, nil
}

// ExchangeCode гасит код, проверяет PKCE verifier и выпускает пару токенов.
// Код гасится до проверки verifier: неверный verifier тоже сжигает код.
func (s *Service) ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.TokenPair, error) {
	pending, err := s.codes.Consume(ctx, code)
	if err != nil {
		if errors.Is(err, authcode.ErrCodeNotFound) || errors.Is(err, authcode.ErrCodeExpired) {
			s.logger.WarnContext(ctx, "code exchange failed", slog.Any("error", err))
			return nil, ErrInvalidAuthorizationCode
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	if !crypto.VerifyCodeChallenge(codeVerifier, pending.CodeChallenge) {
		s.logger.WarnContext(ctx, "code exchange failed: pkce mismatch", slog.String("user_id", pending.UserID))
		return nil, ErrInvalidCodeVerifier
	}

	user, err := s.users.GetUserByID(ctx, pending.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "code exchange failed: user removed", slog.String("user_id", pending.UserID))
			return nil, ErrInvalidAuthorizationCode
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.IssueTokens(ctx, user)
}

// IssueTokens выпускает пару токенов и сохраняет хеш refresh token,
// перезаписывая предыдущий (все прежние refresh tokens становятся недействительны)
func (s *Service) IssueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	pair, hash, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateRefreshTokenHash(ctx, user.ID, &hash); err != nil {
		return nil, fmt.Errorf("failed to save refresh token hash: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens issued", slog.String("user_id", user.ID))
	return pair, nil
}

// RefreshTokens проверяет предъявленный refresh token по сохраненному хешу
// и выпускает новую пару. Подпись и срок действия токена проверяются до вызова.
func (s *Service) RefreshTokens(ctx context.Context, userID, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "refresh denied: user not found", slog.String("user_id", userID))
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasActiveSession() {
		s.logger.WarnContext(ctx, "refresh denied: no active session", slog.String("user_id", userID))
		return nil, ErrAccessDenied
	}

	storedHash := *user.RefreshTokenHash
	if err := crypto.VerifyToken(refreshToken, storedHash); err != nil {
		s.logger.WarnContext(ctx, "refresh denied: token mismatch", slog.String("user_id", userID))
		return nil, ErrAccessDenied
	}

	pair, newHash, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	// compare-and-swap: при гонке двух refresh с одним токеном проходит один
	if err := s.users.RotateRefreshTokenHash(ctx, user.ID, storedHash, newHash); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenMismatch) {
			s.logger.WarnContext(ctx, "refresh denied: token already rotated", slog.String("user_id", userID))
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))
	return pair, nil
}

// Logout очищает хеш refresh token: сессии больше нет
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateRefreshTokenHash(ctx, userID, nil); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "logout for unknown user", slog.String("user_id", userID))
			return nil
		}
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", userID))
	return nil
}

// CreateUser создает пользователя с bcrypt хешем пароля
func (s *Service) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user.Sanitized(), nil
}

// EnsureUser создает пользователя, если username еще свободен
func (s *Service) EnsureUser(ctx context.Context, username, password string) error {
	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	user, err := s.CreateUser(ctx, username, password)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "seed user created", slog.String("username", username), slog.String("user_id", user.ID))
	return nil
}

// mint подписывает пару токенов и считает хеш refresh token
func (s *Service) mint(user *models.User) (*models.TokenPair, string, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	hash, err := crypto.HashToken(refreshToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash refresh token: %w", err)
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, hash, nil
}
