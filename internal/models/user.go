package models

import "time"

// User представляет пользователя в системе
type User struct {
	CreatedAt        time.Time `json:"created_at"`                   // время создания
	UpdatedAt        time.Time `json:"updated_at"`                   // время последнего обновления
	RefreshTokenHash *string   `json:"-"`                            // SHA256 хеш активного refresh token, nil = нет сессии
	ID               string    `json:"id"`                           // UUID пользователя
	Username         string    `json:"username"`                     // уникальный username
	PasswordHash     string    `json:"password_hash,omitempty"`      // bcrypt хеш пароля
}

// HasActiveSession сообщает, есть ли у пользователя действующий refresh token
func (u *User) HasActiveSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

// Sanitized возвращает копию пользователя без хешей пароля и refresh token
func (u *User) Sanitized() *User {
	clean := *u
	clean.PasswordHash = ""
	clean.RefreshTokenHash = nil
	return &clean
}
