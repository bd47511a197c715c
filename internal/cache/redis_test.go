package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r := New(Config{Addr: addr, Prefix: "botpanel_test:" + t.Name() + ":"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, r.Ping(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestKeyPrefix(t *testing.T) {
	r := New(Config{Addr: "127.0.0.1:0"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer r.Close()
	assert.Equal(t, "botpanel:events:b1", r.key("events:b1"))
}

func TestRedisBlobRoundTrip(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()

	_, ok, err := r.Get(ctx, "users:b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "users:b1", []byte(`[{"id":1}]`)))
	got, ok, err := r.Get(ctx, "users:b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(got))

	require.NoError(t, r.Delete(ctx, "users:b1"))
	_, ok, err = r.Get(ctx, "users:b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLock(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()

	token, ok, err := r.TryLock(ctx, "sync:b1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = r.TryLock(ctx, "sync:b1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Unlock(ctx, "sync:b1", token))
	token, ok, err = r.TryLock(ctx, "sync:b1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, r.Unlock(ctx, "sync:b1", token))
}

func TestRedisUnlockKeepsAnotherHoldersLock(t *testing.T) {
	replicaA := testRedis(t)
	replicaB := NewWithClient(replicaA.client, replicaA.prefix, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	stale, ok, err := replicaA.TryLock(ctx, "sync:b1", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(100 * time.Millisecond)

	current, ok, err := replicaB.TryLock(ctx, "sync:b1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, replicaA.Unlock(ctx, "sync:b1", stale))
	_, ok, err = replicaA.TryLock(ctx, "sync:b1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "stale release must not free the new holder's lock")

	require.NoError(t, replicaB.Unlock(ctx, "sync:b1", current))
}
