package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pkceauth/internal/models"
	"github.com/iudanet/pkceauth/internal/server/storage"
)

// setupTestStorage connects to PKCEAUTH_TEST_POSTGRES_DSN or skips the test
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv("PKCEAUTH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PKCEAUTH_TEST_POSTGRES_DSN is not set")
	}

	s, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStorage_UserLifecycle(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "pg_" + uuid.New().String()[:8],
		PasswordHash: "hash",
	}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{
		ID:           uuid.New().String(),
		Username:     user.Username,
		PasswordHash: "hash",
	}), storage.ErrUserAlreadyExists)

	byName, err := s.GetUserByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Nil(t, byName.RefreshTokenHash)

	hash := "hash-1"
	require.NoError(t, s.UpdateRefreshTokenHash(ctx, user.ID, &hash))
	require.NoError(t, s.RotateRefreshTokenHash(ctx, user.ID, "hash-1", "hash-2"))
	assert.ErrorIs(t, s.RotateRefreshTokenHash(ctx, user.ID, "hash-1", "hash-3"), storage.ErrRefreshTokenMismatch)

	require.NoError(t, s.UpdateRefreshTokenHash(ctx, user.ID, nil))
	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, byID.RefreshTokenHash)

	_, err = s.GetUserByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
