package api

// LoginRequest представляет запрос на аутентификацию (шаг 1 PKCE потока)
type LoginRequest struct {
	Username      string `json:"username"`       // username пользователя
	Password      string `json:"password"`       // пароль
	CodeChallenge string `json:"code_challenge"` // base64url(SHA256(code_verifier)) без паддинга
}

// LoginResponse содержит одноразовый authorization code
type LoginResponse struct {
	Code string `json:"code"`
}

// TokenRequest представляет обмен authorization code на токены (шаг 2)
type TokenRequest struct {
	Code         string `json:"code"`          // authorization code из LoginResponse
	CodeVerifier string `json:"code_verifier"` // исходный code verifier
}

// AccessTokenResponse ответ с access token.
// Refresh token передается только в HttpOnly cookie и в теле не возвращается.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// MessageResponse простой ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfileResponse содержит claims проверенного access token
type ProfileResponse struct {
	Username  string `json:"username"`
	Subject   string `json:"sub"` // user ID
	ID        string `json:"jti"`
	Issuer    string `json:"iss"`
	IssuedAt  int64  `json:"iat"` // unix seconds
	ExpiresAt int64  `json:"exp"` // unix seconds
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
