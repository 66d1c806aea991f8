package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/animerged/pkg/storage"
)

// setupCounterStoreTest creates a miniredis instance and returns the store and cleanup function
func setupCounterStoreTest(t *testing.T) (*CounterStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	config := storage.Config{
		RedisURL:        "redis://" + mr.Addr(),
		RedisMaxRetries: 1,
		RedisPoolSize:   4,
	}

	store, err := NewCounterStore(config)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create counter store: %v", err)
	}

	cleanup := func() {
		store.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestNewCounterStore_InvalidURL(t *testing.T) {
	_, err := NewCounterStore(storage.Config{RedisURL: "://nope"})
	assert.Error(t, err)
}

func TestNewCounterStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewCounterStore(storage.Config{RedisURL: "redis://" + addr, RedisTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestCounterStore_GetMissingKey(t *testing.T) {
	store, _, cleanup := setupCounterStoreTest(t)
	defer cleanup()

	n, err := store.Get(context.Background(), "rate:10.0.0.1:requests")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCounterStore_IncrExpire(t *testing.T) {
	store, mr, cleanup := setupCounterStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	key := "rate:10.0.0.1:requests"

	n, err := store.IncrExpire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(40 * time.Second)

	n, err = store.IncrExpire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Every increment pushes the expiry forward again.
	assert.Equal(t, time.Minute, mr.TTL(key))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	mr.FastForward(61 * time.Second)

	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCounterStore_GetNonInteger(t *testing.T) {
	store, mr, cleanup := setupCounterStoreTest(t)
	defer cleanup()

	require.NoError(t, mr.Set("rate:bad:requests", "many"))

	_, err := store.Get(context.Background(), "rate:bad:requests")
	assert.Error(t, err)
}

func TestCounterStore_Ping(t *testing.T) {
	store, mr, cleanup := setupCounterStoreTest(t)
	defer cleanup()

	assert.NoError(t, store.Ping(context.Background()))

	ttl, err := store.TTL(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, ttl < 0)

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
