package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// OutputFormat is the audio format requested from the synthesis endpoint
const OutputFormat = "audio-16khz-32kbitrate-mono-mp3"

var ErrEmptyText = errors.New("text to synthesize is empty")

type Service struct {
	mu      sync.RWMutex
	client  *http.Client
	key     string
	region  string
	baseURL string
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// New builds a synthesis client for the given subscription key and region
func New(key, region string) *Service {
	s := &Service{
		client:  &http.Client{Timeout: 60 * time.Second},
		key:     key,
		region:  region,
		baseURL: fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
	}

	s.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:     "azure-speech",
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

// NewService returns nil when the Azure Speech credentials are not configured
func NewService() *Service {
	key := config.GetAzureSpeechKey()
	region := config.GetAzureRegion()

	if key == "" || region == "" {
		log.Warn().Msg("Azure Speech credentials not configured - read aloud will be unavailable")
		return nil
	}

	s := New(key, region)

	log.Info().
		Str("region", region).
		Msg("Azure Speech service initialized successfully")

	return s
}

// SetBaseURL overrides the synthesis endpoint host
func (s *Service) SetBaseURL(url string) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = strings.TrimRight(url, "/")
	return s
}

// Synthesize converts text to MP3 audio spoken by voice
func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	return s.breaker.Execute(func() ([]byte, error) {
		return s.synthesize(ctx, text, voice)
	})
}

func (s *Service) synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := buildSSML(text, voice)
	if err != nil {
		return nil, fmt.Errorf("failed to build ssml: %w", err)
	}

	url := s.baseURL + "/cognitiveservices/v1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)
	req.Header.Set("X-Microsoft-OutputFormat", OutputFormat)
	req.Header.Set("User-Agent", "jyotchat")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			log.Error().
				Int("status", resp.StatusCode).
				Str("body", string(errBody)).
				Msg("Azure Speech returned an error response")
		}
		return nil, fmt.Errorf("azure speech API returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	return audio, nil
}

// buildSSML wraps text in a speak/voice document. The document language is
// taken from the voice name prefix, e.g. "gu-IN" for "gu-IN-NiranjanNeural".
func buildSSML(text, voice string) ([]byte, error) {
	lang := "en-IN"
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		lang = parts[0] + "-" + parts[1]
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<speak version='1.0' xml:lang='%s'><voice name='%s'>%s</voice></speak>", lang, voice, escaped.String())
	return buf.Bytes(), nil
}
