package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ErrNotFound is returned when the configured assistant does not exist
var ErrNotFound = errors.New("assistant not found")

// Service talks to the retrieval assistant. Chat goes through its
// OpenAI-compatible completions endpoint, metadata through plain GETs.
type Service struct {
	mu      sync.RWMutex
	client  *openai.Client
	http    *http.Client
	baseURL string
	apiKey  string
	name    string
	model   string
}

// Info describes the assistant
type Info struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Instructions string `json:"instructions,omitempty"`
	CreatedOn    string `json:"created_on,omitempty"`
	UpdatedOn    string `json:"updated_on,omitempty"`
}

// File is a document the assistant retrieves from
type File struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    string                 `json:"status,omitempty"`
	CreatedOn string                 `json:"created_on,omitempty"`
	UpdatedOn string                 `json:"updated_on,omitempty"`
	SignedURL string                 `json:"signed_url,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type filesResponse struct {
	Files []File `json:"files"`
}

func New(baseURL, apiKey, name, model string) *Service {
	baseURL = strings.TrimRight(baseURL, "/")

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &Service{
		client:  openai.NewClientWithConfig(cfg),
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		name:    name,
		model:   model,
	}
}

// NewService returns nil when no assistant endpoint is configured
func NewService() *Service {
	baseURL := config.GetAssistantBaseURL()

	if baseURL == "" {
		return nil
	}

	s := New(baseURL, config.GetAssistantAPIKey(), config.GetAssistantName(), config.GetAssistantModel())

	log.Info().
		Str("base_url", s.baseURL).
		Str("assistant", s.name).
		Msg("Assistant service initialized successfully")

	return s
}

// Name returns the configured assistant name
func (s *Service) Name() string {
	return s.name
}

// ChatStream opens a streamed completion against the assistant
func (s *Service) ChatStream(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionStream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open assistant stream: %w", err)
	}

	return stream, nil
}

// Describe fetches the assistant's metadata, returning ErrNotFound when the
// assistant has not been created yet
func (s *Service) Describe(ctx context.Context) (*Info, error) {
	var info Info
	if err := s.get(ctx, "/assistants/"+url.PathEscape(s.name), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListFiles lists the documents uploaded to the assistant
func (s *Service) ListFiles(ctx context.Context) ([]File, error) {
	var resp filesResponse
	if err := s.get(ctx, "/assistants/"+url.PathEscape(s.name)+"/files", &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (s *Service) get(ctx context.Context, path string, v interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
		req.Header.Set("Api-Key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			log.Error().
				Int("status", resp.StatusCode).
				Str("path", path).
				Str("body", string(body)).
				Msg("Assistant API returned an error response")
		}
		return fmt.Errorf("assistant API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
