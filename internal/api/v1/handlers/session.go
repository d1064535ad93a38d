package handlers

import (
	"net/http"

	"github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	"github.com/jyotchat/jyotchat/internal/services/session"
	"github.com/jyotchat/jyotchat/internal/services/transcript"
	"github.com/jyotchat/jyotchat/pkg/httpext"
)

// HandleClearSession forgets the caller's conversation: the stored
// transcript, the session record and the cookie. Clearing without a
// session is not an error.
func HandleClearSession(sessionService *session.Service, transcriptService *transcript.Service, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	claims, err := sessionService.ValidateSession(r)
	if err != nil {
		logger.Warn().Err(err).Msg("Clearing invalid session cookie")
	}

	if claims != nil {
		if err := transcriptService.Delete(r.Context(), claims.SessionID); err != nil {
			logger.Error().Err(err).Str("session_id", claims.SessionID).Msg("Failed to delete transcript")
			writeError(w, errProcessingRequest, http.StatusInternalServerError)
			return
		}
		logger.Info().Str("session_id", claims.SessionID).Msg("Cleared session")
	}

	sessionService.ClearSession(w, r)
	httpext.JsonResponse(w, http.StatusOK, StatusResponse{Status: "ok"})
}
