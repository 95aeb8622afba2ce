package models

import "time"

// PendingAuthorization ожидающая обмена авторизация, создается после проверки пароля
// и живет до обмена кода на токены или до истечения TTL
type PendingAuthorization struct {
	CreatedAt     time.Time `json:"created_at"`
	Code          string    `json:"-"`
	UserID        string    `json:"user_id"`
	CodeChallenge string    `json:"code_challenge"`
}

// TokenPair пара access/refresh токенов
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
