package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jyotchat/jyotchat/internal/chat"
	"github.com/rs/zerolog/log"
)

// Error bodies returned to the browser
const (
	errMessageRequired    = "Message content is required"
	errSpeechCredentials  = "Azure Speech API credentials are not set"
	errTranslatorCreds    = "Azure Translator API credentials are not set"
	errProcessingRequest  = "An error occurred while processing the request"
	errAssistantMissing   = "Please create an Assistant"
	errAssistantUnreached = "Error connecting to the Assistant"
)

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// MessagesRequest carries a conversation for the chat and suggestion routes
type MessagesRequest struct {
	Messages []chat.Turn `json:"messages" validate:"required,min=1,dive"`
}

// MessageRequest carries a single text for translation or speech
type MessageRequest struct {
	Message string `json:"message"`
}

type SuggestionsResponse struct {
	Questions []string `json:"questions"`
}

type AssistantResponse struct {
	Exists        bool   `json:"exists"`
	AssistantName string `json:"assistant_name"`
}

type FilesResponse struct {
	Status  string      `json:"status"`
	Files   interface{} `json:"files,omitempty"`
	Message string      `json:"message,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// decodeRequest decodes and validates a JSON body, writing a 400 on failure
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Client sent malformed JSON request")
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(v); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Request validation failed")
		writeError(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return false
	}

	return true
}
