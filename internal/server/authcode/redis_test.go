package authcode

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "", DefaultTTL), mr
}

func TestRedisStore_IssueConsume(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	code, err := store.Issue(ctx, "user-1", "challenge")
	require.NoError(t, err)
	assert.True(t, mr.Exists("pkceauth:code:"+code))
	assert.Equal(t, DefaultTTL, mr.TTL("pkceauth:code:"+code))

	pending, err := store.Consume(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "user-1", pending.UserID)
	assert.Equal(t, "challenge", pending.CodeChallenge)
	assert.False(t, mr.Exists("pkceauth:code:"+code))

	_, err = store.Consume(ctx, code)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	code, err := store.Issue(ctx, "user-1", "challenge")
	require.NoError(t, err)

	mr.FastForward(DefaultTTL + time.Second)

	_, err = store.Consume(ctx, code)
	assert.ErrorIs(t, err, ErrCodeNotFound)

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisStore_EmptyCode(t *testing.T) {
	store, _ := setupRedisStore(t)

	_, err := store.Consume(context.Background(), "")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRedisStore_BackendDown(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)
	mr.Close()

	_, err := store.Issue(ctx, "user-1", "challenge")
	assert.ErrorIs(t, err, ErrStoreBackend)

	_, err = store.Consume(ctx, "some-code")
	assert.ErrorIs(t, err, ErrStoreBackend)
}

func TestRedisStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store, _ := setupRedisStore(t)

	code, err := store.Issue(ctx, "user-1", "challenge")
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, code); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
}
