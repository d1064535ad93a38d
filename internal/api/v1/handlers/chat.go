package handlers

import (
	"net/http"

	"github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	chatservice "github.com/jyotchat/jyotchat/internal/services/chat"
	"github.com/jyotchat/jyotchat/internal/services/suggestions"
	"github.com/jyotchat/jyotchat/pkg/httpext"
	"github.com/jyotchat/jyotchat/pkg/sse"
)

// HandleChat relays an assistant reply as server-sent events, one completion
// chunk per event, terminated by [DONE]
func HandleChat(chatService *chatservice.Service, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	var req MessagesRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if !chatService.Available() {
		logger.Error().Msg("Chat requested but no assistant is configured")
		writeError(w, errAssistantMissing, http.StatusInternalServerError)
		return
	}

	logger.Info().
		Int("message_count", len(req.Messages)).
		Msg("Received chat request")

	chunks, err := chatService.Stream(r.Context(), req.Messages)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open assistant stream")
		writeError(w, errAssistantUnreached, http.StatusBadGateway)
		return
	}

	stream, err := sse.NewWriter(w)
	if err != nil {
		logger.Error().Err(err).Msg("Response writer does not support streaming")
		writeError(w, errProcessingRequest, http.StatusInternalServerError)
		// drain so the relay goroutine exits
		for range chunks {
		}
		return
	}

	sent := 0
	for chunk := range chunks {
		if err := stream.Send("", chunk); err != nil {
			logger.Debug().Err(err).Msg("Client went away mid-stream")
			return
		}
		sent++
	}

	if err := stream.Done(); err != nil {
		logger.Debug().Err(err).Msg("Failed to write stream terminator")
		return
	}

	logger.Info().Int("chunks", sent).Msg("Chat stream completed")
}

// HandleSuggestQuestions proposes follow-up questions for a conversation
func HandleSuggestQuestions(suggestionService *suggestions.Service, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	var req MessagesRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	questions, err := suggestionService.Suggest(r.Context(), req.Messages)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to suggest questions")
		writeError(w, errProcessingRequest, http.StatusInternalServerError)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, SuggestionsResponse{Questions: questions})
}

func writeError(w http.ResponseWriter, message string, code int) {
	httpext.JsonError(w, message, code)
}
