package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// HashToken хеширует refresh token с использованием SHA256
// Refresh token содержит достаточно энтропии, поэтому медленный KDF не нужен,
// а детерминированный хеш позволяет делать атомарный compare-and-swap в БД
func HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}

	hash := sha256.Sum256([]byte(token))

	// Возвращаем hex-encoded строку
	return hex.EncodeToString(hash[:]), nil
}

// VerifyToken проверяет, соответствует ли token сохраненному хешу
// Сравнение выполняется за постоянное время
func VerifyToken(token, hashedToken string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if hashedToken == "" {
		return fmt.Errorf("hashed token cannot be empty")
	}

	computedHash, err := HashToken(token)
	if err != nil {
		return fmt.Errorf("failed to compute token hash: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(computedHash), []byte(hashedToken)) != 1 {
		return fmt.Errorf("token does not match")
	}

	return nil
}
