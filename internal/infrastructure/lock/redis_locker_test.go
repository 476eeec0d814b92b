package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisLocker on top of it
func setupTestRedis(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisLocker(client, 30*time.Second), mr
}

func TestAcquire_Exclusive(t *testing.T) {
	locker, mr := setupTestRedis(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:order:1"))

	_, err = locker.Acquire(ctx, "order:1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	// other keys are independent
	releaseOther, err := locker.Acquire(ctx, "order:2")
	require.NoError(t, err)
	require.NoError(t, releaseOther(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("lock:order:1"))

	release, err = locker.Acquire(ctx, "order:1")
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestAcquire_SetsTTL(t *testing.T) {
	locker, mr := setupTestRedis(t)

	_, err := locker.Acquire(context.Background(), "order:1")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, mr.TTL("lock:order:1"))
}

func TestAcquire_ExpiredLockCanBeRetaken(t *testing.T) {
	locker, mr := setupTestRedis(t)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)

	release, err := locker.Acquire(ctx, "order:1")
	require.NoError(t, err)

	// the first owner's release must not remove the new owner's lock
	require.NoError(t, staleRelease(ctx))
	assert.True(t, mr.Exists("lock:order:1"))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("lock:order:1"))
}

func TestAcquire_RedisDown(t *testing.T) {
	locker, mr := setupTestRedis(t)
	mr.Close()

	_, err := locker.Acquire(context.Background(), "order:1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotAcquired)
}
