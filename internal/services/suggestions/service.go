package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

const DefaultLimit = 3

var (
	ErrNotConfigured = errors.New("suggestions are not configured")
	ErrNoMessages    = errors.New("messages are required")
)

// Completer is the part of the OpenAI client used here
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Service struct {
	mu     sync.RWMutex
	client Completer
	model  string
	prompt *SystemPrompt
	limit  int
}

type suggestionsResponse struct {
	Questions []string `json:"questions"`
}

// NewService returns a service that always reports ErrNotConfigured when
// client is nil
func NewService(client Completer, model string) *Service {
	return &Service{
		client: client,
		model:  model,
		prompt: NewSystemPrompt(DefaultLimit),
		limit:  DefaultLimit,
	}
}

func (s *Service) Available() bool {
	return s.client != nil
}

// Suggest proposes follow-up questions for the conversation so far
func (s *Service) Suggest(ctx context.Context, turns []chat.Turn) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.Available() {
		return nil, ErrNotConfigured
	}
	if len(turns) == 0 {
		return nil, ErrNoMessages
	}

	prompt := *s.prompt
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	for _, turn := range turns {
		if turn.Role == chat.RoleSystem {
			prompt.SetCustom(turn.Content)
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append([]openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt.String(),
	}}, messages...)

	logger.Debug(logger.CHAT, "Requesting suggestions for %d messages", len(messages)-1)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		logger.Error(logger.CHAT, "Failed to get suggestions: %v", err)
		return nil, fmt.Errorf("failed to get chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	var body suggestionsResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &body); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}

	questions := make([]string, 0, s.limit)
	for _, q := range body.Questions {
		if q = strings.TrimSpace(q); q != "" && len(questions) < s.limit {
			questions = append(questions, q)
		}
	}

	return questions, nil
}
