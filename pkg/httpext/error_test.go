package httpext

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonError(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		code     int
		wantBody string
	}{
		{
			name:     "bad request",
			message:  "Message content is required",
			code:     http.StatusBadRequest,
			wantBody: `{"error":"Message content is required"}`,
		},
		{
			name:     "upstream failure",
			message:  "Error connecting to the Assistant",
			code:     http.StatusBadGateway,
			wantBody: `{"error":"Error connecting to the Assistant"}`,
		},
		{
			name:     "empty message keeps the key",
			message:  "",
			code:     http.StatusInternalServerError,
			wantBody: `{"error":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JsonError(w, tt.message, tt.code)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String(), "body carries only the error key")
		})
	}
}

func TestJsonResponse(t *testing.T) {
	w := httptest.NewRecorder()
	JsonResponse(w, http.StatusCreated, map[string]interface{}{"questions": []string{"a", "b"}})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response struct {
		Questions []string `json:"questions"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, []string{"a", "b"}, response.Questions)
}
