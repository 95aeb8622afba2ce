// Package authcode хранит короткоживущие одноразовые authorization codes,
// выданные после проверки пароля и ожидающие обмена на токены.
//
// MemoryStore подходит только для одного процесса. При нескольких инстансах
// сервера код, выданный одним инстансом, должен погашаться другим, поэтому
// нужен общий бэкенд (RedisStore).
package authcode

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/pkceauth/internal/models"
)

// DefaultTTL время жизни authorization code
const DefaultTTL = 5 * time.Minute

var (
	// ErrCodeNotFound код неизвестен или уже погашен
	ErrCodeNotFound = errors.New("authorization code not found")

	// ErrCodeExpired код найден, но истек его TTL. Запись при этом удаляется.
	ErrCodeExpired = errors.New("authorization code expired")
)

// Store хранилище ожидающих авторизаций
type Store interface {
	// Issue создает новый код для userID и codeChallenge
	Issue(ctx context.Context, userID, codeChallenge string) (string, error)

	// Consume атомарно извлекает и удаляет запись.
	// Из нескольких конкурентных вызовов с одним кодом успешен ровно один.
	Consume(ctx context.Context, code string) (*models.PendingAuthorization, error)

	// SweepExpired удаляет истекшие записи и возвращает их количество
	SweepExpired(ctx context.Context) (int, error)
}
