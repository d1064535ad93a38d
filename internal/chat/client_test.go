package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hi", " there"} {
			data, _ := json.Marshal(NewFragment(part))
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	mux.HandleFunc("/api/suggest-questions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/translate", func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fmt.Fprintf(w, `{"translations":[{"text":"EN:%s","to":"en"}]}`, req.Message)
	})
	mux.HandleFunc("/api/assistants", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"exists":true,"assistant_name":"jyot"}`)
	})
	mux.HandleFunc("/api/files", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","files":[{"id":"f1","name":"guide.pdf"}]}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPBackend(t *testing.T) {
	server := newTestServer(t)
	backend := NewHTTPBackend(server.URL + "/")
	ctx := context.Background()

	t.Run("drives a controller end to end", func(t *testing.T) {
		c := NewController(backend)
		require.NoError(t, c.Submit(ctx, "hello"))
		c.Wait()

		msgs := c.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "Hi there", msgs[1].Content)
		assert.Empty(t, c.Suggestions(), "non-OK suggestions become an empty list")
	})

	t.Run("suggestions error on non-OK", func(t *testing.T) {
		_, err := backend.SuggestQuestions(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("translate returns the first translation", func(t *testing.T) {
		text, err := backend.Translate(ctx, "hola")
		require.NoError(t, err)
		assert.Equal(t, "EN:hola", text)
	})

	t.Run("assistant info and files", func(t *testing.T) {
		info, err := backend.AssistantInfo(ctx)
		require.NoError(t, err)
		assert.True(t, info.Exists)
		assert.Equal(t, "jyot", info.Name)

		files, err := backend.Files(ctx)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "guide.pdf", files[0].Name)
	})
}
