package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// CodeSize - размер authorization code в байтах (256 бит)
	CodeSize = 32
	// VerifierSize - размер случайной части PKCE code verifier в байтах
	VerifierSize = 64
)

// GenerateRandomBytes генерирует криптографически случайный буфер указанного размера
func GenerateRandomBytes(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// GenerateCode генерирует непрозрачный authorization code в base64url без padding
func GenerateCode() (string, error) {
	b, err := GenerateRandomBytes(CodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateCodeVerifier генерирует PKCE code verifier (RFC 7636, 43-128 символов)
func GenerateCodeVerifier() (string, error) {
	b, err := GenerateRandomBytes(VerifierSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	// 64 байта -> 86 символов base64url
	return base64.RawURLEncoding.EncodeToString(b), nil
}
