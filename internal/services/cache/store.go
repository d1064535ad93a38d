// Package cache keeps short-lived vendor results such as synthesized audio
// and translations, in Redis when available and in memory otherwise.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jyotchat/jyotchat/internal/infrastructure/redis"
	"github.com/jyotchat/jyotchat/pkg/logger"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisStore struct {
	redisService *redis.Service
	prefix       string
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore returns a Redis-backed store namespaced by prefix, or an
// in-memory store when redisService is nil or unreachable
func NewStore(redisService *redis.Service, prefix string) Store {
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			logger.Error(logger.REDIS, "Redis connection failed: %v", err)
			logger.Warn(logger.SERVICE, "Falling back to in-memory %s cache", prefix)
			return NewMemoryStore()
		}
		logger.Info(logger.SERVICE, "Using Redis for %s cache", prefix)
		return &RedisStore{redisService: redisService, prefix: prefix + ":"}
	}

	logger.Info(logger.SERVICE, "Using in-memory %s cache", prefix)
	return NewMemoryStore()
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Redis Store implementation
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := rs.redisService.Get(ctx, rs.prefix+key)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (rs *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return rs.redisService.Set(ctx, rs.prefix+key, value, ttl)
}

func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	return rs.redisService.Delete(ctx, rs.prefix+key)
}

// Memory Store implementation
func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	e, exists := ms.entries[key]
	ms.mu.RUnlock()

	if !exists {
		return nil, ErrMiss
	}

	if !e.expiresAt.IsZero() && ms.now().After(e.expiresAt) {
		if err := ms.Delete(ctx, key); err != nil {
			logger.Warn(logger.SERVICE, "Failed to delete expired cache entry: %v", err)
		}
		return nil, ErrMiss
	}

	return e.value, nil
}

// Set stores value; a zero ttl never expires
func (ms *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = ms.now().Add(ttl)
	}
	ms.entries[key] = e
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.entries, key)
	return nil
}
