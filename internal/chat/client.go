package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jyotchat/jyotchat/pkg/sse"
	"github.com/rs/zerolog/log"
)

var ErrNoTranslation = errors.New("no translation returned")

// AssistantStatus reports whether the retrieval assistant exists
type AssistantStatus struct {
	Exists bool   `json:"exists"`
	Name   string `json:"assistant_name"`
}

// File is a document available to the assistant
type File struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status,omitempty"`
	SignedURL string `json:"signed_url,omitempty"`
}

type chatRequest struct {
	Messages []Turn `json:"messages"`
}

type suggestResponse struct {
	Questions []string `json:"questions"`
}

type translateRequest struct {
	Message string `json:"message"`
}

type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type filesResponse struct {
	Status  string `json:"status"`
	Files   []File `json:"files"`
	Message string `json:"message,omitempty"`
}

// HTTPBackend drives a controller against a JyotChat server
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

type HTTPOption func(*HTTPBackend)

// WithHTTPClient replaces the default client. Its timeout must leave room
// for long streamed replies.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		b.client = client
	}
}

func NewHTTPBackend(baseURL string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *HTTPBackend) StreamChat(ctx context.Context, history []Message) (<-chan []byte, error) {
	resp, err := b.post(ctx, "/api/chat", chatRequest{Messages: Turns(history)}, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return sse.Read(ctx, resp.Body), nil
}

func (b *HTTPBackend) SuggestQuestions(ctx context.Context, history []Message) ([]string, error) {
	resp, err := b.post(ctx, "/api/suggest-questions", chatRequest{Messages: Turns(history)}, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	return body.Questions, nil
}

func (b *HTTPBackend) Translate(ctx context.Context, text string) (string, error) {
	resp, err := b.post(ctx, "/api/translate", translateRequest{Message: text}, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode translation: %w", err)
	}
	if len(body.Translations) == 0 {
		return "", ErrNoTranslation
	}
	return body.Translations[0].Text, nil
}

// ReadAloud returns synthesized audio for text
func (b *HTTPBackend) ReadAloud(ctx context.Context, text string) ([]byte, error) {
	resp, err := b.post(ctx, "/api/read-aloud", translateRequest{Message: text}, "audio/mpeg")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (b *HTTPBackend) AssistantInfo(ctx context.Context) (*AssistantStatus, error) {
	var status AssistantStatus
	if err := b.get(ctx, "/api/assistants", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (b *HTTPBackend) Files(ctx context.Context) ([]File, error) {
	var body filesResponse
	if err := b.get(ctx, "/api/files", &body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("failed to list files: %s", body.Message)
	}
	return body.Files, nil
}

// post returns the response only for a 200; the caller closes the body
func (b *HTTPBackend) post(ctx context.Context, path string, payload interface{}, accept string) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	return b.do(req)
}

func (b *HTTPBackend) get(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (b *HTTPBackend) do(req *http.Request) (*http.Response, error) {
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Debug().
			Int("status", resp.StatusCode).
			Str("path", req.URL.Path).
			Str("body", string(body)).
			Msg("Server returned an error response")
		return nil, fmt.Errorf("%s returned status %d", req.URL.Path, resp.StatusCode)
	}

	return resp, nil
}
