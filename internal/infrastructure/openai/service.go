package openai

import (
	"sync"

	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

type Service struct {
	mu     sync.RWMutex
	client *openai.Client
	model  string
}

func NewService() *Service {
	logger.Info(logger.SERVICE, "Initialising OpenAI service")
	key := config.GetOpenAIKey()

	if key == "" {
		logger.Warn(logger.SERVICE, "OpenAI service not configured - OPENAI_KEY missing")
		return nil
	}

	return New(openai.NewClient(key), config.GetOpenAIModel())
}

// New wraps an existing client, which lets callers point it at another base URL
func New(client *openai.Client, model string) *Service {
	return &Service{
		client: client,
		model:  model,
	}
}

func (s *Service) GetClient() *openai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Service) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}
