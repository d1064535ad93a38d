// Package transcript persists the messages of a browser session so a
// reconnecting websocket resumes the conversation.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/infrastructure/redis"
	"github.com/jyotchat/jyotchat/pkg/logger"
)

type TranscriptStore interface {
	Save(ctx context.Context, sessionID string, messages []chat.Message) error
	Load(ctx context.Context, sessionID string) ([]chat.Message, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
	lifetime     time.Duration
}

type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string][]chat.Message
}

type Service struct {
	store TranscriptStore
}

func NewService(redisService *redis.Service, lifetime time.Duration) *Service {
	logger.Info(logger.SERVICE, "Initialising transcript service")

	var store TranscriptStore
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			logger.Error(logger.REDIS, "Redis connection failed: %v", err)
			logger.Warn(logger.SERVICE, "Falling back to in-memory transcript storage")
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService, lifetime: lifetime}
		}
	} else {
		logger.Info(logger.SERVICE, "Using in-memory transcript storage")
		store = newMemoryStore()
	}

	return &Service{store: store}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts: make(map[string][]chat.Message),
	}
}

// Redis Store implementation
func (rs *RedisStore) Save(ctx context.Context, sessionID string, messages []chat.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, "Transcript:"+sessionID, string(data), rs.lifetime)
}

func (rs *RedisStore) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	data, err := rs.redisService.Get(ctx, "Transcript:"+sessionID)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []chat.Message
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, "Transcript:"+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Save(ctx context.Context, sessionID string, messages []chat.Message) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.transcripts[sessionID] = append([]chat.Message(nil), messages...)
	return nil
}

func (ms *MemoryStore) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	messages, exists := ms.transcripts[sessionID]
	if !exists {
		return nil, nil
	}
	return append([]chat.Message(nil), messages...), nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.transcripts, sessionID)
	return nil
}

// Save stores the session's messages, replacing any previous transcript
func (s *Service) Save(ctx context.Context, sessionID string, messages []chat.Message) error {
	return s.store.Save(ctx, sessionID, messages)
}

// Load returns the session's messages, or nil for a new session
func (s *Service) Load(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *Service) Delete(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}
