package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// CodeChallengeS256 вычисляет PKCE challenge: base64url(sha256(verifier)) без padding
func CodeChallengeS256(codeVerifier string) string {
	sum := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyCodeChallenge проверяет code verifier против сохраненного challenge.
// Чистая функция без побочных эффектов, сравнение за постоянное время.
func VerifyCodeChallenge(codeVerifier, expectedChallenge string) bool {
	if codeVerifier == "" || expectedChallenge == "" {
		return false
	}
	computed := CodeChallengeS256(codeVerifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expectedChallenge)) == 1
}
