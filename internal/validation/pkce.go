package validation

import (
	"fmt"
	"regexp"
)

// challengePattern base64url(sha256) без padding всегда 43 символа
var challengePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{43}$`)

// MaxCodeVerifierLen верхняя граница длины code verifier (RFC 7636)
const MaxCodeVerifierLen = 128

// ValidateCodeChallenge проверяет формат S256 code challenge
func ValidateCodeChallenge(challenge string) error {
	if challenge == "" {
		return fmt.Errorf("code_challenge: %w", ErrEmpty)
	}
	if !challengePattern.MatchString(challenge) {
		return fmt.Errorf("code_challenge must be unpadded base64url of a SHA-256 digest")
	}
	return nil
}

// ValidateTokenRequest проверяет поля запроса обмена кода
func ValidateTokenRequest(code, codeVerifier string) error {
	if code == "" {
		return fmt.Errorf("code: %w", ErrEmpty)
	}
	if codeVerifier == "" {
		return fmt.Errorf("code_verifier: %w", ErrEmpty)
	}
	if len(codeVerifier) > MaxCodeVerifierLen {
		return fmt.Errorf("code_verifier must not exceed %d characters", MaxCodeVerifierLen)
	}
	return nil
}
