package authcode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/pkceauth/internal/crypto"
	"github.com/iudanet/pkceauth/internal/models"
)

// Compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// MemoryStore in-memory реализация Store для одного процесса
type MemoryStore struct {
	clock   clockwork.Clock
	pending map[string]models.PendingAuthorization
	ttl     time.Duration
	mu      sync.Mutex
}

// NewMemoryStore создает хранилище кодов.
// ttl <= 0 заменяется на DefaultTTL, nil clock на реальные часы.
func NewMemoryStore(clock clockwork.Clock, ttl time.Duration) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		clock:   clock,
		pending: make(map[string]models.PendingAuthorization),
		ttl:     ttl,
	}
}

// Issue создает новый код
func (s *MemoryStore) Issue(ctx context.Context, userID, codeChallenge string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		code, err := crypto.GenerateCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.pending[code]; taken {
			continue
		}

		s.pending[code] = models.PendingAuthorization{
			Code:          code,
			UserID:        userID,
			CodeChallenge: codeChallenge,
			CreatedAt:     s.clock.Now(),
		}
		return code, nil
	}
}

// Consume извлекает и удаляет запись под одной блокировкой
func (s *MemoryStore) Consume(ctx context.Context, code string) (*models.PendingAuthorization, error) {
	s.mu.Lock()
	pending, ok := s.pending[code]
	if ok {
		delete(s.pending, code)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrCodeNotFound
	}
	if s.expired(pending) {
		return nil, ErrCodeExpired
	}

	return &pending, nil
}

// SweepExpired удаляет истекшие коды
func (s *MemoryStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for code, pending := range s.pending {
		if s.expired(pending) {
			delete(s.pending, code)
			removed++
		}
	}
	return removed, nil
}

// Len количество хранимых кодов, включая еще не вычищенные истекшие
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run периодически вычищает истекшие коды до отмены ctx
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			removed, err := s.SweepExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "failed to sweep authorization codes", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.DebugContext(ctx, "expired authorization codes removed", slog.Int("count", removed))
			}
		}
	}
}

func (s *MemoryStore) expired(p models.PendingAuthorization) bool {
	return !s.clock.Now().Before(p.CreatedAt.Add(s.ttl))
}
