package services

import (
	"fmt"
	"sync"

	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/internal/infrastructure/assistant"
	"github.com/jyotchat/jyotchat/internal/infrastructure/openai"
	"github.com/jyotchat/jyotchat/internal/infrastructure/redis"
	speechapi "github.com/jyotchat/jyotchat/internal/infrastructure/speech"
	"github.com/jyotchat/jyotchat/internal/infrastructure/translator"
	"github.com/jyotchat/jyotchat/internal/services/cache"
	"github.com/jyotchat/jyotchat/internal/services/chat"
	"github.com/jyotchat/jyotchat/internal/services/session"
	"github.com/jyotchat/jyotchat/internal/services/speech"
	"github.com/jyotchat/jyotchat/internal/services/suggestions"
	"github.com/jyotchat/jyotchat/internal/services/transcript"
	"github.com/jyotchat/jyotchat/internal/services/translation"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	assistantService   *assistant.Service
	chatService        *chat.Service
	redisService       *redis.Service
	sessionService     *session.Service
	speechService      *speech.Service
	suggestionService  *suggestions.Service
	transcriptService  *transcript.Service
	translationService *translation.Service
}

// InitializeServices initializes all required services. Vendor integrations
// are optional; routes backed by a missing one answer with an error.
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()

	voices, err := config.LoadVoiceTable(config.GetVoicesConfigPath())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load voice table")
		return nil, fmt.Errorf("failed to load voice table: %w", err)
	}

	// Initialize optional infrastructure services
	assistantService := assistant.NewService()
	openAIService := openai.NewService()
	speechClient := speechapi.NewService()
	translatorClient := translator.NewService()
	log.Info().Msg("Initializing infrastructure services")

	// nil clients stay nil interfaces so the services report not configured
	var streamer chat.Streamer
	if assistantService != nil {
		streamer = assistantService
	}
	chatService := chat.NewService(streamer)

	var synth speech.Synthesizer
	if speechClient != nil {
		synth = speechClient
	}
	speechService := speech.NewService(synth, voices, cache.NewStore(redisService, "Audio"), config.GetAudioCacheTTL())

	var tr translation.Translator
	if translatorClient != nil {
		tr = translatorClient
	}
	translationService := translation.NewService(tr, config.GetTranslateTarget(), cache.NewStore(redisService, "Translation"), config.GetTranslationCacheTTL())

	var completer suggestions.Completer
	model := config.GetOpenAIModel()
	if openAIService != nil {
		completer = openAIService.GetClient()
		model = openAIService.Model()
	}
	suggestionService := suggestions.NewService(completer, model)

	// Initialize session and transcript services with optional Redis
	sessionService := session.NewService(redisService)
	transcriptService := transcript.NewService(redisService, config.GetSessionLifetime())

	log.Info().
		Bool("assistant", chatService.Available()).
		Bool("speech", speechService.Available()).
		Bool("translation", translationService.Available()).
		Bool("suggestions", suggestionService.Available()).
		Bool("redis", redisService != nil).
		Msg("All services initialized successfully")

	return &Services{
		assistantService:   assistantService,
		chatService:        chatService,
		redisService:       redisService,
		sessionService:     sessionService,
		speechService:      speechService,
		suggestionService:  suggestionService,
		transcriptService:  transcriptService,
		translationService: translationService,
	}, nil
}

// NewServices assembles a container from already built services
func NewServices(
	assistantService *assistant.Service,
	chatService *chat.Service,
	sessionService *session.Service,
	speechService *speech.Service,
	suggestionService *suggestions.Service,
	transcriptService *transcript.Service,
	translationService *translation.Service,
) *Services {
	return &Services{
		assistantService:   assistantService,
		chatService:        chatService,
		sessionService:     sessionService,
		speechService:      speechService,
		suggestionService:  suggestionService,
		transcriptService:  transcriptService,
		translationService: translationService,
	}
}

// GetAssistantService returns the assistant client, nil when not configured
func (s *Services) GetAssistantService() *assistant.Service {
	return s.assistantService
}

// GetChatService returns the chat relay
func (s *Services) GetChatService() *chat.Service {
	return s.chatService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetSpeechService returns the speech service
func (s *Services) GetSpeechService() *speech.Service {
	return s.speechService
}

// GetSuggestionService returns the suggestion service
func (s *Services) GetSuggestionService() *suggestions.Service {
	return s.suggestionService
}

// GetTranscriptService returns the transcript service
func (s *Services) GetTranscriptService() *transcript.Service {
	return s.transcriptService
}

// GetTranslationService returns the translation service
func (s *Services) GetTranslationService() *translation.Service {
	return s.translationService
}

// Close releases the Redis connection if one was opened
func (s *Services) Close() error {
	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}
