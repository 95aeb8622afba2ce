package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultAccessTokenTTL время жизни access token
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL время жизни refresh token
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	// DefaultIssuer значение iss по умолчанию
	DefaultIssuer = "pkceauth"
)

var (
	// ErrInvalidSignature токен поврежден, подписан другим ключом или алгоритмом
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired срок действия токена истек
	ErrTokenExpired = errors.New("token expired")
)

// Claims представляет JWT claims: {username, sub, jti, iat, exp, iss}
type Claims struct {
	Username string `json:"username"`
	gojwt.RegisteredClaims
}

// UserID возвращает sub
func (c *Claims) UserID() string {
	return c.Subject
}

// Config содержит конфигурацию для JWT
// Секреты access и refresh обязаны различаться
type Config struct {
	AccessSecret    []byte
	RefreshSecret   []byte
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Service provides JWT token generation and validation
type Service struct {
	clock   clockwork.Clock
	access  signer
	refresh signer
	issuer  string
}

type signer struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a new JWT service
func NewService(cfg Config, clock clockwork.Clock) (*Service, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		clock:   clock,
		access:  signer{secret: cfg.AccessSecret, ttl: cfg.AccessTokenTTL},
		refresh: signer{secret: cfg.RefreshSecret, ttl: cfg.RefreshTokenTTL},
		issuer:  cfg.Issuer,
	}, nil
}

// AccessTokenTTL время жизни access token
func (s *Service) AccessTokenTTL() time.Duration {
	return s.access.ttl
}

// RefreshTokenTTL время жизни refresh token (и cookie)
func (s *Service) RefreshTokenTTL() time.Duration {
	return s.refresh.ttl
}

// GenerateAccessToken creates a new JWT access token
func (s *Service) GenerateAccessToken(userID, username string) (string, error) {
	token, err := s.sign(s.access, userID, username)
	if err != nil {
		return "", fmt.Errorf("failed to create access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken creates a new JWT refresh token
func (s *Service) GenerateRefreshToken(userID, username string) (string, error) {
	token, err := s.sign(s.refresh, userID, username)
	if err != nil {
		return "", fmt.Errorf("failed to create refresh token: %w", err)
	}
	return token, nil
}

// ValidateAccessToken validates and parses JWT access token
func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.parse(s.access, token)
}

// ValidateRefreshToken validates and parses JWT refresh token
func (s *Service) ValidateRefreshToken(token string) (*Claims, error) {
	return s.parse(s.refresh, token)
}

func (s *Service) sign(sg signer, userID, username string) (string, error) {
	if userID == "" {
		return "", errors.New("user id cannot be empty")
	}

	now := s.clock.Now()
	// jti делает каждый токен уникальным, даже если он выпущен в ту же секунду
	claims := Claims{
		Username: username,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(sg.ttl)),
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sg.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) parse(sg signer, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := gojwt.ParseWithClaims(tokenString, claims,
		func(token *gojwt.Token) (interface{}, error) {
			return sg.secret, nil
		},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(s.issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}
