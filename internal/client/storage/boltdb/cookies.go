package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/pkceauth/internal/client/storage"
)

// SaveCookies заменяет cookies для host
func (s *Storage) SaveCookies(ctx context.Context, host string, cookies []storage.StoredCookie) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCookies)
		if bucket == nil {
			return fmt.Errorf("cookies bucket not found")
		}

		if len(cookies) == 0 {
			if err := bucket.Delete([]byte(host)); err != nil {
				return fmt.Errorf("failed to delete cookies: %w", err)
			}
			return nil
		}

		// Сериализуем данные в JSON
		data, err := json.Marshal(cookies)
		if err != nil {
			return fmt.Errorf("failed to marshal cookies: %w", err)
		}

		if err := bucket.Put([]byte(host), data); err != nil {
			return fmt.Errorf("failed to save cookies: %w", err)
		}

		return nil
	})
}

// LoadCookies возвращает сохраненные cookies для host
func (s *Storage) LoadCookies(ctx context.Context, host string) ([]storage.StoredCookie, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var cookies []storage.StoredCookie

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCookies)
		if bucket == nil {
			return fmt.Errorf("cookies bucket not found")
		}

		data := bucket.Get([]byte(host))
		if data == nil {
			return nil
		}

		// data валиден только внутри транзакции, Unmarshal копирует значения
		if err := json.Unmarshal(data, &cookies); err != nil {
			return fmt.Errorf("failed to unmarshal cookies: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cookies, nil
}
