// Package chat relays assistant replies as raw completion chunks so callers
// can forward them over SSE or a websocket untouched.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrNotConfigured = errors.New("assistant is not configured")
	ErrNoMessages    = errors.New("messages are required")
)

// Streamer opens a streamed completion
type Streamer interface {
	ChatStream(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionStream, error)
}

type Service struct {
	streamer Streamer
}

func NewService(streamer Streamer) *Service {
	return &Service{streamer: streamer}
}

func (s *Service) Available() bool {
	return s.streamer != nil
}

// Stream opens a reply to turns. Each value on the returned channel is one
// JSON encoded chunk; the channel closes when the reply ends, fails or ctx
// is cancelled.
func (s *Service) Stream(ctx context.Context, turns []chat.Turn) (<-chan []byte, error) {
	if !s.Available() {
		return nil, ErrNotConfigured
	}
	if len(turns) == 0 {
		return nil, ErrNoMessages
	}

	messages := make([]openai.ChatCompletionMessage, len(turns))
	for i, turn := range turns {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
	}

	logger.Debug(logger.CHAT, "Opening assistant stream with %d messages", len(messages))

	stream, err := s.streamer.ChatStream(ctx, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer stream.Close()

		chunks := 0
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				logger.Debug(logger.CHAT, "Assistant stream finished after %d chunks", chunks)
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					logger.Error(logger.CHAT, "Assistant stream failed: %v", err)
				}
				return
			}

			data, err := json.Marshal(resp)
			if err != nil {
				logger.Warn(logger.CHAT, "Failed to encode chunk: %v", err)
				continue
			}
			chunks++

			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Collect drains a stream into the reply text
func Collect(chunks <-chan []byte) (string, error) {
	var text string
	for raw := range chunks {
		f, err := chat.ParseFragment(raw)
		if err != nil {
			return text, fmt.Errorf("failed to collect reply: %w", err)
		}
		if delta, ok := f.Delta(); ok {
			text += delta
		}
	}
	return text, nil
}
