package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	"github.com/jyotchat/jyotchat/internal/services/speech"
)

// HandleReadAloud synthesizes a message and returns the MP3 bytes
func HandleReadAloud(speechService *speech.Service, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	var req MessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		logger.Warn().Msg("Invalid input: message is missing")
		writeError(w, errMessageRequired, http.StatusBadRequest)
		return
	}

	if !speechService.Available() {
		logger.Error().Msg("Azure Speech API credentials are not set")
		writeError(w, errSpeechCredentials, http.StatusInternalServerError)
		return
	}

	audio, err := speechService.ReadAloud(r.Context(), req.Message)
	if errors.Is(err, speech.ErrEmptyMessage) {
		writeError(w, errMessageRequired, http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error synthesizing speech")
		writeError(w, errProcessingRequest, http.StatusInternalServerError)
		return
	}

	cache := "MISS"
	if audio.Cached {
		cache = "HIT"
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("X-Speech-Voice", audio.Voice)
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(audio.Data); err != nil {
		logger.Debug().Err(err).Msg("Failed to write audio response")
		return
	}

	logger.Info().
		Str("voice", audio.Voice).
		Str("lang", audio.Language).
		Int("bytes", len(audio.Data)).
		Bool("cached", audio.Cached).
		Msg("Read aloud request processed successfully")
}
