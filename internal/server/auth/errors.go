package auth

import "errors"

// Ошибки аутентификации. Все они отдаются клиенту как непрозрачный 401,
// конкретная причина нужна только для серверных логов.
var (
	// ErrInvalidCredentials неверный username или пароль
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidAuthorizationCode код неизвестен, истек или уже погашен
	ErrInvalidAuthorizationCode = errors.New("invalid or expired authorization code")

	// ErrInvalidCodeVerifier code verifier не соответствует challenge
	ErrInvalidCodeVerifier = errors.New("invalid code verifier")

	// ErrAccessDenied refresh token не совпал, сессия отозвана или пользователь удален
	ErrAccessDenied = errors.New("access denied")

	// ErrMissingRefreshToken refresh cookie отсутствует
	ErrMissingRefreshToken = errors.New("missing refresh token")
)

// authErrors ошибки, соответствующие 401
var authErrors = []error{
	ErrInvalidCredentials,
	ErrInvalidAuthorizationCode,
	ErrInvalidCodeVerifier,
	ErrAccessDenied,
	ErrMissingRefreshToken,
}

// IsAuthError сообщает, является ли err ошибкой аутентификации (401),
// а не внутренней ошибкой сервера (5xx)
func IsAuthError(err error) bool {
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
