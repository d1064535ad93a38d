package handlers

import (
	"net/http"
	"strings"

	"github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	"github.com/jyotchat/jyotchat/internal/infrastructure/translator"
	"github.com/jyotchat/jyotchat/internal/services/translation"
	"github.com/jyotchat/jyotchat/pkg/httpext"
)

type TranslateResponse struct {
	Translations []translator.Translation `json:"translations"`
}

// HandleTranslate translates a message into the configured target language
func HandleTranslate(translationService *translation.Service, w http.ResponseWriter, r *http.Request) {
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

	if !translationService.Available() {
		logger.Error().Msg("Azure Translator API credentials are not set")
		writeError(w, errTranslatorCreds, http.StatusInternalServerError)
		return
	}

	translations, err := translationService.Translate(r.Context(), req.Message)
	if err != nil {
		logger.Error().Err(err).Msg("Error processing the translation request")
		writeError(w, errProcessingRequest, http.StatusInternalServerError)
		return
	}

	logger.Info().
		Int("translations", len(translations)).
		Str("to", translationService.Target()).
		Msg("Translation successful")

	httpext.JsonResponse(w, http.StatusOK, TranslateResponse{Translations: translations})
}
