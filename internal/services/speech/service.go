// Package speech turns assistant replies into spoken audio. It picks a voice
// from the detected language of the text and caches synthesized results.
package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/internal/services/cache"
	"github.com/jyotchat/jyotchat/pkg/logger"
)

var (
	ErrNotConfigured = errors.New("Azure Speech API credentials are not set")
	ErrEmptyMessage  = errors.New("message content is required")
)

// Synthesizer renders text with a named voice
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Audio is a synthesized reply
type Audio struct {
	Data     []byte
	Voice    string
	Language string
	Cached   bool
}

type Service struct {
	synth  Synthesizer
	voices *config.VoiceTable
	store  cache.Store
	ttl    time.Duration
}

// NewService wires a synthesizer to a voice table and cache. synth may be
// nil, in which case ReadAloud reports ErrNotConfigured.
func NewService(synth Synthesizer, voices *config.VoiceTable, store cache.Store, ttl time.Duration) *Service {
	if voices == nil {
		voices = config.DefaultVoiceTable()
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}

	return &Service{
		synth:  synth,
		voices: voices,
		store:  store,
		ttl:    ttl,
	}
}

func (s *Service) Available() bool {
	return s.synth != nil
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when unknown
func DetectLanguage(text string) string {
	return whatlanggo.Detect(text).Lang.Iso6391()
}

// VoiceFor picks the voice for text
func (s *Service) VoiceFor(text string) (voice, lang string) {
	lang = DetectLanguage(text)
	return s.voices.Voice(lang), lang
}

// ReadAloud synthesizes the body of message, ignoring any references tail
func (s *Service) ReadAloud(ctx context.Context, message string) (*Audio, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}

	text := chat.StripReferences(message)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	voice, lang := s.VoiceFor(text)
	key := cacheKey(voice, text)

	if data, err := s.store.Get(ctx, key); err == nil {
		logger.Debug(logger.AUDIO, "Serving cached audio for voice %s", voice)
		return &Audio{Data: data, Voice: voice, Language: lang, Cached: true}, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.Warn(logger.AUDIO, "Audio cache lookup failed: %v", err)
	}

	logger.Info(logger.AUDIO, "Synthesizing %d characters with voice %s (lang=%q)", len(text), voice, lang)

	data, err := s.synth.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		logger.Warn(logger.AUDIO, "Failed to cache audio: %v", err)
	}

	return &Audio{Data: data, Voice: voice, Language: lang}, nil
}

func cacheKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
