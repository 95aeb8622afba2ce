package authcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/pkceauth/internal/crypto"
	"github.com/iudanet/pkceauth/internal/models"
)

// Compile-time check that RedisStore implements Store
var _ Store = (*RedisStore)(nil)

const defaultRedisPrefix = "pkceauth:code"

// maxIssueAttempts ограничивает повторы при коллизии ключа
const maxIssueAttempts = 3

// ErrStoreBackend ошибка связи с Redis
var ErrStoreBackend = errors.New("authorization code backend unavailable")

// RedisStore реализация Store поверх Redis для нескольких инстансов сервера.
// Истечение делегировано TTL ключа, погашение выполняется одной командой GETDEL.
type RedisStore struct {
	redis  redis.UniversalClient
	now    func() time.Time
	prefix string
	ttl    time.Duration
}

type redisRecord struct {
	UserID        string `json:"uid"`
	CodeChallenge string `json:"cc"`
	CreatedAt     int64  `json:"iat"`
}

// NewRedisStore создает хранилище кодов в Redis
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		now:    time.Now,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(code string) string {
	return s.prefix + ":" + code
}

// Issue сохраняет запись с TTL, SET NX исключает перезапись чужого кода
func (s *RedisStore) Issue(ctx context.Context, userID, codeChallenge string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}

	data, err := json.Marshal(redisRecord{
		UserID:        userID,
		CodeChallenge: codeChallenge,
		CreatedAt:     s.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode authorization code: %w", err)
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := crypto.GenerateCode()
		if err != nil {
			return "", err
		}

		ok, err := s.redis.SetNX(ctx, s.key(code), data, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreBackend, err)
		}
		if ok {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to allocate unique authorization code")
}

// Consume атомарно читает и удаляет ключ
func (s *RedisStore) Consume(ctx context.Context, code string) (*models.PendingAuthorization, error) {
	if code == "" {
		return nil, ErrCodeNotFound
	}

	data, err := s.redis.GetDel(ctx, s.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreBackend, err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode authorization code: %w", err)
	}

	return &models.PendingAuthorization{
		Code:          code,
		UserID:        rec.UserID,
		CodeChallenge: rec.CodeChallenge,
		CreatedAt:     time.Unix(rec.CreatedAt, 0),
	}, nil
}

// SweepExpired ничего не делает: Redis сам удаляет ключи по TTL
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}
