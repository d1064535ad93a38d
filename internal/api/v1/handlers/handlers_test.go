package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/jyotchat/jyotchat/internal/connections"
	"github.com/jyotchat/jyotchat/internal/infrastructure/assistant"
	"github.com/jyotchat/jyotchat/internal/services/servicestest"
	"github.com/jyotchat/jyotchat/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, opts servicestest.Options) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	RegisterRoutes(router, servicestest.New(t, opts), connections.NewManager(connections.DefaultTimeouts))
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestHandleChat(t *testing.T) {
	t.Run("streams completion chunks and terminates with DONE", func(t *testing.T) {
		router := newRouter(t, servicestest.Options{Reply: []string{"Hello", ", ", "world"}})
		rec := do(router, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "data: "+sse.DoneMarker)

		var text string
		for raw := range sse.Read(context.Background(), io.NopCloser(bytes.NewReader(rec.Body.Bytes()))) {
			f, err := chat.ParseFragment(raw)
			require.NoError(t, err)
			if delta, ok := f.Delta(); ok {
				text += delta
			}
		}
		assert.Equal(t, "Hello, world", text)
	})

	tests := []struct {
		name       string
		opts       servicestest.Options
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed json",
			body:       `{"messages":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "empty conversation",
			body:       `{"messages":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown role",
			body:       `{"messages":[{"role":"robot","content":"hi"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no assistant configured",
			opts:       servicestest.Options{NoAssistant: true},
			body:       `{"messages":[{"role":"user","content":"hi"}]}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Please create an Assistant",
		},
		{
			name:       "assistant unreachable",
			opts:       servicestest.Options{AssistantDown: true},
			body:       `{"messages":[{"role":"user","content":"hi"}]}`,
			wantStatus: http.StatusBadGateway,
			wantError:  "Error connecting to the Assistant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newRouter(t, tt.opts), http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
			}
		})
	}
}

func TestHandleSuggestQuestions(t *testing.T) {
	body := `{"messages":[{"role":"system","content":"Focus on travel"},{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`

	t.Run("returns questions", func(t *testing.T) {
		router := newRouter(t, servicestest.Options{Questions: []string{" Where? ", "", "When?", "How?", "Why?"}})
		rec := do(router, http.MethodPost, "/api/suggest-questions", body)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SuggestionsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, []string{"Where?", "When?", "How?"}, resp.Questions)
	})

	t.Run("upstream failure is a 500", func(t *testing.T) {
		router := newRouter(t, servicestest.Options{SuggestErr: errors.New("boom")})
		rec := do(router, http.MethodPost, "/api/suggest-questions", body)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "An error occurred while processing the request", errorBody(t, rec))
	})

	t.Run("not configured is a 500", func(t *testing.T) {
		router := newRouter(t, servicestest.Options{NoSuggestions: true})
		rec := do(router, http.MethodPost, "/api/suggest-questions", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleTranslate(t *testing.T) {
	tests := []struct {
		name       string
		opts       servicestest.Options
		body       string
		wantStatus int
		wantError  string
		wantText   string
	}{
		{
			name:       "translates into the target language",
			body:       `{"message":"Hello"}`,
			wantStatus: http.StatusOK,
			wantText:   "HI:Hello",
		},
		{
			name:       "missing message",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Message content is required",
		},
		{
			name:       "blank message",
			body:       `{"message":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Message content is required",
		},
		{
			name:       "credentials not set",
			opts:       servicestest.Options{NoTranslator: true},
			body:       `{"message":"Hello"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Azure Translator API credentials are not set",
		},
		{
			name:       "translator failure",
			opts:       servicestest.Options{TranslateErr: errors.New("quota")},
			body:       `{"message":"Hello"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "An error occurred while processing the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newRouter(t, tt.opts), http.MethodPost, "/api/translate", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
				return
			}

			var resp TranslateResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Len(t, resp.Translations, 1)
			assert.Equal(t, tt.wantText, resp.Translations[0].Text)
			assert.Equal(t, "hi", resp.Translations[0].To)
		})
	}
}

func TestHandleReadAloud(t *testing.T) {
	t.Run("returns mp3 audio and caches it", func(t *testing.T) {
		router := newRouter(t, servicestest.Options{Audio: []byte("ID3audio")})

		rec := do(router, http.MethodPost, "/api/read-aloud", `{"message":"Hello there, how are you today?\n\nReferences:\nguide.pdf"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "ID3audio", rec.Body.String())
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		assert.NotEmpty(t, rec.Header().Get("X-Speech-Voice"))

		rec = do(router, http.MethodPost, "/api/read-aloud", `{"message":"Hello there, how are you today?"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	})

	tests := []struct {
		name       string
		opts       servicestest.Options
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing message",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Message content is required",
		},
		{
			name:       "only references",
			body:       `{"message":"References:\nguide.pdf"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Message content is required",
		},
		{
			name:       "credentials not set",
			opts:       servicestest.Options{NoSpeech: true},
			body:       `{"message":"Hello"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "Azure Speech API credentials are not set",
		},
		{
			name:       "synthesis failure",
			opts:       servicestest.Options{SpeechErr: errors.New("503")},
			body:       `{"message":"Hello"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "An error occurred while processing the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newRouter(t, tt.opts), http.MethodPost, "/api/read-aloud", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorBody(t, rec))
		})
	}
}

func TestHandleAssistants(t *testing.T) {
	tests := []struct {
		name       string
		opts       servicestest.Options
		wantStatus int
		want       AssistantResponse
	}{
		{
			name:       "assistant exists",
			wantStatus: http.StatusOK,
			want:       AssistantResponse{Exists: true, AssistantName: servicestest.AssistantName},
		},
		{
			name:       "assistant not created",
			opts:       servicestest.Options{AssistantMissing: true},
			wantStatus: http.StatusOK,
			want:       AssistantResponse{Exists: false, AssistantName: servicestest.AssistantName},
		},
		{
			name:       "assistant not configured",
			opts:       servicestest.Options{NoAssistant: true},
			wantStatus: http.StatusOK,
			want:       AssistantResponse{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newRouter(t, tt.opts), http.MethodGet, "/api/assistants", "")
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp AssistantResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want, resp)
		})
	}

	t.Run("assistant unreachable", func(t *testing.T) {
		rec := do(newRouter(t, servicestest.Options{AssistantDown: true}), http.MethodGet, "/api/assistants", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHandleFiles(t *testing.T) {
	t.Run("lists files", func(t *testing.T) {
		files := []assistant.File{{ID: "f1", Name: "guide.pdf", Status: "Available"}}
		rec := do(newRouter(t, servicestest.Options{Files: files}), http.MethodGet, "/api/files", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status string           `json:"status"`
			Files  []assistant.File `json:"files"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, files, resp.Files)
	})

	t.Run("errors carry a status and message", func(t *testing.T) {
		for _, opts := range []servicestest.Options{{NoAssistant: true}, {AssistantDown: true}} {
			rec := do(newRouter(t, opts), http.MethodGet, "/api/files", "")
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			var resp FilesResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Message)
		}
	})
}

func TestOperationalRoutes(t *testing.T) {
	router := newRouter(t, servicestest.Options{})

	rec := do(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jyotchat_http_requests_total")

	rec = do(router, http.MethodGet, "/api/translate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleClearSession(t *testing.T) {
	t.Run("deletes the transcript and expires the cookie", func(t *testing.T) {
		svcs := servicestest.New(t, servicestest.Options{})
		router := mux.NewRouter()
		RegisterRoutes(router, svcs, connections.NewManager(connections.DefaultTimeouts))

		ctx := context.Background()
		created := httptest.NewRecorder()
		claims, err := svcs.GetSessionService().CreateSession(ctx, created)
		require.NoError(t, err)
		cookies := created.Result().Cookies()
		require.Len(t, cookies, 1)

		history := []chat.Message{chat.NewMessage(chat.RoleUser, "hi"), chat.NewMessage(chat.RoleAssistant, "hello")}
		require.NoError(t, svcs.GetTranscriptService().Save(ctx, claims.SessionID, history))

		req := httptest.NewRequest(http.MethodDelete, "/api/session", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

		expired := rec.Result().Cookies()
		require.Len(t, expired, 1)
		assert.Equal(t, cookies[0].Name, expired[0].Name)
		assert.Empty(t, expired[0].Value)

		msgs, err := svcs.GetTranscriptService().Load(ctx, claims.SessionID)
		require.NoError(t, err)
		assert.Nil(t, msgs)

		check := httptest.NewRequest(http.MethodGet, "/", nil)
		check.AddCookie(cookies[0])
		got, err := svcs.GetSessionService().ValidateSession(check)
		require.NoError(t, err)
		assert.Nil(t, got, "session record is gone")
	})

	t.Run("without a session is still ok", func(t *testing.T) {
		rec := do(newRouter(t, servicestest.Options{}), http.MethodDelete, "/api/session", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("only delete is routed", func(t *testing.T) {
		rec := do(newRouter(t, servicestest.Options{}), http.MethodGet, "/api/session", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
