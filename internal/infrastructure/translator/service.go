package translator

import (
	"bytes"
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

	"github.com/google/uuid"
	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const apiVersion = "3.0"

var ErrNoTranslation = errors.New("translator returned no translations")

type Service struct {
	mu       sync.RWMutex
	client   *http.Client
	key      string
	region   string
	endpoint string
	breaker  *gobreaker.CircuitBreaker[[]Translation]
}

type textItem struct {
	Text string `json:"text"`
}

// Translation is one target-language rendering of the input text
type Translation struct {
	Text string `json:"text"`
	To   string `json:"to"`
}

type translateResult struct {
	DetectedLanguage *struct {
		Language string  `json:"language"`
		Score    float64 `json:"score"`
	} `json:"detectedLanguage,omitempty"`
	Translations []Translation `json:"translations"`
}

// New builds a translator client. An empty endpoint uses the public
// Azure Translator endpoint.
func New(key, region, endpoint string) *Service {
	if endpoint == "" {
		endpoint = "https://api.cognitive.microsofttranslator.com"
	}

	s := &Service{
		client:   &http.Client{Timeout: 30 * time.Second},
		key:      key,
		region:   region,
		endpoint: strings.TrimRight(endpoint, "/"),
	}

	s.breaker = gobreaker.NewCircuitBreaker[[]Translation](gobreaker.Settings{
		Name:     "azure-translator",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})

	return s
}

// NewService returns nil when the Azure Translator credentials are not configured
func NewService() *Service {
	key := config.GetAzureTranslatorKey()
	region := config.GetAzureRegion()

	if key == "" || region == "" {
		log.Warn().Msg("Azure Translator credentials not configured - translation will be unavailable")
		return nil
	}

	s := New(key, region, config.GetAzureTranslatorEndpoint())

	log.Info().
		Str("endpoint", s.endpoint).
		Msg("Azure Translator service initialized successfully")

	return s
}

// Translate renders text into the target language
func (s *Service) Translate(ctx context.Context, text, to string) ([]Translation, error) {
	return s.breaker.Execute(func() ([]Translation, error) {
		return s.translate(ctx, text, to)
	})
}

func (s *Service) translate(ctx context.Context, text, to string) ([]Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jsonData, err := json.Marshal([]textItem{{Text: text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	params := url.Values{}
	params.Set("api-version", apiVersion)
	params.Set("to", to)
	reqURL := fmt.Sprintf("%s/translate?%s", s.endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	traceID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("Ocp-Apim-Subscription-Region", s.region)
	req.Header.Set("X-ClientTraceId", traceID)

	log.Debug().Str("trace_id", traceID).Str("to", to).Msg("Sending request to Azure Translator API")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			log.Error().
				Int("status", resp.StatusCode).
				Str("trace_id", traceID).
				Str("body", string(body)).
				Msg("Azure Translator returned an error response")
		}
		return nil, fmt.Errorf("azure translator API returned status %d", resp.StatusCode)
	}

	var results []translateResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(results) == 0 || len(results[0].Translations) == 0 {
		return nil, ErrNoTranslation
	}

	return results[0].Translations, nil
}
