package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jyotchat/jyotchat/internal/infrastructure/translator"
	"github.com/jyotchat/jyotchat/internal/services/cache"
	"github.com/jyotchat/jyotchat/pkg/logger"
)

var (
	ErrNotConfigured = errors.New("Azure Translator API credentials are not set")
	ErrEmptyMessage  = errors.New("message content is required")
)

type Translator interface {
	Translate(ctx context.Context, text, to string) ([]translator.Translation, error)
}

type Service struct {
	translator Translator
	target     string
	store      cache.Store
	ttl        time.Duration
}

// NewService translates into target. t may be nil, in which case Translate
// reports ErrNotConfigured.
func NewService(t Translator, target string, store cache.Store, ttl time.Duration) *Service {
	if store == nil {
		store = cache.NewMemoryStore()
	}

	return &Service{
		translator: t,
		target:     target,
		store:      store,
		ttl:        ttl,
	}
}

func (s *Service) Available() bool {
	return s.translator != nil
}

func (s *Service) Target() string {
	return s.target
}

func (s *Service) Translate(ctx context.Context, text string) ([]translator.Translation, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	key := cacheKey(s.target, text)
	if data, err := s.store.Get(ctx, key); err == nil {
		var cached []translator.Translation
		if err := json.Unmarshal(data, &cached); err == nil {
			logger.Debug(logger.TRANSLATE, "Serving cached translation")
			return cached, nil
		}
		logger.Warn(logger.TRANSLATE, "Discarding undecodable cached translation")
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.Warn(logger.TRANSLATE, "Translation cache lookup failed: %v", err)
	}

	translations, err := s.translator.Translate(ctx, text, s.target)
	if err != nil {
		return nil, fmt.Errorf("failed to translate: %w", err)
	}

	logger.Info(logger.TRANSLATE, "Translated %d characters to %s", len(text), s.target)

	if data, err := json.Marshal(translations); err == nil {
		if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
			logger.Warn(logger.TRANSLATE, "Failed to cache translation: %v", err)
		}
	}

	return translations, nil
}

func cacheKey(target, text string) string {
	sum := sha256.Sum256([]byte(target + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
