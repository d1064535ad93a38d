package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jyotchat/jyotchat/internal/infrastructure/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "forever", []byte("x"), 0))
	now = now.Add(24 * time.Hour)
	_, err = store.Get(ctx, "forever")
	assert.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "forever"))
	_, err = store.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	_, ok := NewStore(nil, "audio").(*MemoryStore)
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}

	svc := redis.NewService()
	require.NotNil(t, svc)
	defer svc.Close()

	ctx := context.Background()
	store := NewStore(svc, "test")
	require.IsType(t, &RedisStore{}, store)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
