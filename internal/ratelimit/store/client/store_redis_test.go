package client

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

	"tillgate/internal/ratelimit/models"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_AdmitAndDeny(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for i, wantRemaining := range []int{2, 1, 0} {
		res, err := store.Admit(ctx, "203.0.113.30", time.Minute, 3, 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining)
	}

	res, err := store.Admit(ctx, "203.0.113.30", time.Minute, 3, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, models.ReasonLimitExceeded, res.Reason)
	assert.Equal(t, 600, res.RetryAfter)

	// Subsequent requests hit the block key, not the window.
	res, err = store.Admit(ctx, "203.0.113.30", time.Minute, 3, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, models.ReasonBlocked, res.Reason)
}

func TestRedisStore_BlockExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	for n := 0; n < 4; n++ {
		_, err := store.Admit(ctx, "203.0.113.31", time.Minute, 3, 10*time.Minute)
		require.NoError(t, err)
	}

	mr.FastForward(11 * time.Minute)

	res, err := store.Admit(ctx, "203.0.113.31", time.Minute, 3, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "block and window both expired")
}

func TestRedisStore_PerAddressIsolation(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for n := 0; n < 4; n++ {
		_, _ = store.Admit(ctx, "10.1.0.1", time.Minute, 3, 10*time.Minute)
	}

	res, err := store.Admit(ctx, "10.1.0.2", time.Minute, 3, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestRedisStore_SharedBackendEnforcesOneQuota(t *testing.T) {
	// Two server instances on one Redis must admit exactly maxRequests for an
	// address even when their calls interleave.
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = clientA.Close(); _ = clientB.Close() })
	stores := [2]*RedisStore{NewRedisStore(clientA), NewRedisStore(clientB)}

	ctx := context.Background()
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(s *RedisStore) {
			defer wg.Done()
			res, err := s.Admit(ctx, "10.9.0.1", time.Minute, 5, 10*time.Minute)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}(stores[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
}

func TestRedisStore_ResetAndListBlocked(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for n := 0; n < 4; n++ {
		_, _ = store.Admit(ctx, "10.1.0.3", time.Minute, 3, 10*time.Minute)
	}

	blocked, err := store.ListBlocked(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "10.1.0.3", blocked[0].Address)
	assert.Greater(t, blocked[0].RetryAfter, 0)

	require.NoError(t, store.Reset(ctx, "10.1.0.3"))

	res, err := store.Admit(ctx, "10.1.0.3", time.Minute, 3, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	blockedAfter, err := store.ListBlocked(ctx)
	require.NoError(t, err)
	assert.Empty(t, blockedAfter)
}

func TestRedisStore_ResetAllAndLen(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	_, _ = store.Admit(ctx, "10.1.1.1", time.Minute, 3, time.Minute)
	_, _ = store.Admit(ctx, "10.1.1.2", time.Minute, 3, time.Minute)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.ResetAll(ctx))
	n, err = store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
