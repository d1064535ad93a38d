package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	reply  []string
	exists bool
}

func (f *fakeBackend) StreamChat(ctx context.Context, history []chat.Message) (<-chan []byte, error) {
	ch := make(chan []byte, len(f.reply))
	for _, part := range f.reply {
		data, _ := json.Marshal(chat.NewFragment(part))
		ch <- data
	}
	close(ch)
	return ch, nil
}

func (f *fakeBackend) SuggestQuestions(ctx context.Context, history []chat.Message) ([]string, error) {
	return []string{"What else?"}, nil
}

func (f *fakeBackend) Translate(ctx context.Context, text string) (string, error) {
	return "HI:" + text, nil
}

func (f *fakeBackend) ReadAloud(ctx context.Context, text string) ([]byte, error) {
	return []byte("ID3"), nil
}

func (f *fakeBackend) AssistantInfo(ctx context.Context) (*chat.AssistantStatus, error) {
	return &chat.AssistantStatus{Exists: f.exists, Name: "jyot"}, nil
}

func (f *fakeBackend) Files(ctx context.Context) ([]chat.File, error) {
	return []chat.File{{ID: "f1", Name: "guide.pdf"}}, nil
}

func newTestREPL(t *testing.T, b *fakeBackend) (*repl, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r := newREPL(&out, b, nil)
	t.Cleanup(r.close)
	return r, &out
}

// settle waits for background commands and suggestion refreshes
func settle(r *repl) {
	r.wg.Wait()
	r.controller.Wait()
}

func TestREPLChat(t *testing.T) {
	ctx := context.Background()
	r, out := newTestREPL(t, &fakeBackend{reply: []string{"Hi", " there"}, exists: true})

	r.greet(ctx)
	assert.Contains(t, out.String(), "Connected to jyot")
	assert.Contains(t, out.String(), "1 documents available")

	require.True(t, r.handle(ctx, "hello"))
	settle(r)
	assert.Contains(t, out.String(), "[1] Hi there")
	assert.Contains(t, out.String(), "(1) What else?")

	t.Run("ask sends a suggestion", func(t *testing.T) {
		require.True(t, r.handle(ctx, "/ask 1"))
		settle(r)

		msgs := r.controller.Messages()
		require.Len(t, msgs, 4)
		assert.Equal(t, "What else?", msgs[2].Content)
		assert.Contains(t, out.String(), "[2] Hi there")
	})

	t.Run("translate toggles the latest reply", func(t *testing.T) {
		require.True(t, r.handle(ctx, "/translate"))
		settle(r)
		assert.Contains(t, out.String(), "[2] HI:Hi there")

		require.True(t, r.handle(ctx, "/translate 2"))
		settle(r)
		assert.True(t, strings.HasSuffix(out.String(), "[2] Hi there\n"))
	})

	t.Run("regenerate rewrites a reply", func(t *testing.T) {
		require.True(t, r.handle(ctx, "/regen 1"))
		settle(r)
		assert.Equal(t, "Hi there", r.controller.Messages()[1].Content)
	})
}

func TestREPLCommands(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  string
		keep  bool
	}{
		{"quit", "/quit", "", false},
		{"unknown command", "/dance", "Unknown command /dance", true},
		{"no replies to regenerate", "/regen", "No replies yet", true},
		{"no such suggestion", "/ask 9", `No suggestion "9"`, true},
		{"read aloud without a player", "/read", "Read aloud is disabled", true},
		{"files", "/files", "guide.pdf", true},
		{"blank", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out := newTestREPL(t, &fakeBackend{exists: true})
			assert.Equal(t, tt.keep, r.handle(ctx, tt.input))
			settle(r)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestREPLGreetMissingAssistant(t *testing.T) {
	r, out := newTestREPL(t, &fakeBackend{exists: false})
	r.greet(context.Background())
	assert.Contains(t, out.String(), "! Please create an Assistant")
}
