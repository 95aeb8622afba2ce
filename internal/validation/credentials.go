package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrEmpty возвращается для пустого обязательного значения
var ErrEmpty = errors.New("value cannot be empty")

// usernamePattern допустимые символы для новых username: латиница, цифры, '_', '.', '-'
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 64
	// MaxPasswordLen bcrypt учитывает только первые 72 байта
	MaxPasswordLen = 72
)

// ValidateLoginInput проверяет поля запроса логина до обращения к хранилищу.
// Формат username здесь не проверяется: неизвестный и некорректный username
// должны давать одинаковый ответ.
func ValidateLoginInput(username, password string) error {
	if username == "" {
		return fmt.Errorf("username: %w", ErrEmpty)
	}
	if password == "" {
		return fmt.Errorf("password: %w", ErrEmpty)
	}
	return nil
}

// ValidateUsername проверяет username при создании пользователя
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username: %w", ErrEmpty)
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, '_', '.' and '-'")
	}

	return nil
}

// ValidatePassword проверяет пароль при создании пользователя
func ValidatePassword(password string) error {
	const minPasswordLen = 8

	if password == "" {
		return fmt.Errorf("password: %w", ErrEmpty)
	}

	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLen)
	}

	return nil
}
