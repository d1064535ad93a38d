package httpext

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every error the API returns
type ErrorResponse struct {
	Error string `json:"error"`
}

// JsonError writes {"error": message} with the given status code
func JsonError(w http.ResponseWriter, message string, code int) {
	JsonResponse(w, code, ErrorResponse{Error: message})
}

// JsonResponse writes v as a JSON body with the given status code
func JsonResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", code).Msg("Failed to encode response")
	}
}
