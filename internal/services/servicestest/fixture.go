// Package servicestest builds a service container for handler tests: a fake
// assistant upstream served by httptest plus in-memory vendor doubles.
package servicestest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jyotchat/jyotchat/internal/infrastructure/assistant"
	"github.com/jyotchat/jyotchat/internal/infrastructure/translator"
	"github.com/jyotchat/jyotchat/internal/services"
	"github.com/jyotchat/jyotchat/internal/services/chat"
	"github.com/jyotchat/jyotchat/internal/services/session"
	"github.com/jyotchat/jyotchat/internal/services/speech"
	"github.com/jyotchat/jyotchat/internal/services/suggestions"
	"github.com/jyotchat/jyotchat/internal/services/transcript"
	"github.com/jyotchat/jyotchat/internal/services/translation"
	"github.com/sashabaranov/go-openai"
)

const AssistantName = "jyot-guide"

type Options struct {
	// Reply is streamed chunk by chunk for every chat completion
	Reply []string
	// Delay is slept before each chunk
	Delay time.Duration

	AssistantMissing bool
	AssistantDown    bool
	Files            []assistant.File

	Questions  []string
	SuggestErr error

	TranslateErr error

	Audio     []byte
	SpeechErr error

	NoAssistant   bool
	NoSpeech      bool
	NoTranslator  bool
	NoSuggestions bool
}

// New returns services wired to doubles described by opts
func New(t *testing.T, opts Options) *services.Services {
	t.Helper()

	var assistantService *assistant.Service
	var streamer chat.Streamer
	if !opts.NoAssistant {
		upstream := httptest.NewServer(upstreamHandler(opts))
		t.Cleanup(upstream.Close)
		assistantService = assistant.New(upstream.URL, "test-key", AssistantName, "gpt-4o")
		streamer = assistantService
	}

	var synth speech.Synthesizer
	if !opts.NoSpeech {
		synth = &Synthesizer{Audio: opts.Audio, Err: opts.SpeechErr}
	}

	var tr translation.Translator
	if !opts.NoTranslator {
		tr = &Translator{Err: opts.TranslateErr}
	}

	var completer suggestions.Completer
	if !opts.NoSuggestions {
		completer = &Completer{Questions: opts.Questions, Err: opts.SuggestErr}
	}

	return services.NewServices(
		assistantService,
		chat.NewService(streamer),
		session.NewService(nil),
		speech.NewService(synth, nil, nil, time.Hour),
		suggestions.NewService(completer, "gpt-4o-mini"),
		transcript.NewService(nil, time.Hour),
		translation.NewService(tr, "hi", nil, time.Hour),
	)
}

func upstreamHandler(opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if opts.AssistantDown {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, part := range opts.Reply {
			if opts.Delay > 0 {
				select {
				case <-time.After(opts.Delay):
				case <-r.Context().Done():
					return
				}
			}
			data, _ := json.Marshal(openai.ChatCompletionStreamResponse{
				ID:     "chatcmpl-test",
				Object: "chat.completion.chunk",
				Model:  "gpt-4o",
				Choices: []openai.ChatCompletionStreamChoice{{
					Delta: openai.ChatCompletionStreamChoiceDelta{Content: part},
				}},
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
			if flusher != nil {
				flusher.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	mux.HandleFunc("/assistants/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case opts.AssistantDown:
			w.WriteHeader(http.StatusInternalServerError)
		case opts.AssistantMissing:
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/files"):
			json.NewEncoder(w).Encode(map[string]interface{}{"files": opts.Files})
		default:
			json.NewEncoder(w).Encode(assistant.Info{Name: AssistantName, Status: "Ready"})
		}
	})

	return mux
}

// Synthesizer returns fixed audio
type Synthesizer struct {
	Audio []byte
	Err   error
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Audio != nil {
		return s.Audio, nil
	}
	return []byte("ID3-" + voice), nil
}

// Translator prefixes text with the target language
type Translator struct {
	Err error
}

func (t *Translator) Translate(ctx context.Context, text, to string) ([]translator.Translation, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	return []translator.Translation{{Text: strings.ToUpper(to) + ":" + text, To: to}}, nil
}

// Completer answers every request with Questions
type Completer struct {
	Questions []string
	Err       error
}

func (c *Completer) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.Err != nil {
		return openai.ChatCompletionResponse{}, c.Err
	}
	content, _ := json.Marshal(map[string][]string{"questions": c.Questions})
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: string(content)},
		}},
	}, nil
}
