package handlers

import (
	"errors"
	"net/http"

	"github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	"github.com/jyotchat/jyotchat/internal/infrastructure/assistant"
	"github.com/jyotchat/jyotchat/pkg/httpext"
)

// HandleAssistants reports whether the configured assistant exists
func HandleAssistants(assistantService *assistant.Service, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	if assistantService == nil {
		httpext.JsonResponse(w, http.StatusOK, AssistantResponse{Exists: false})
		return
	}

	info, err := assistantService.Describe(r.Context())
	if errors.Is(err, assistant.ErrNotFound) {
		httpext.JsonResponse(w, http.StatusOK, AssistantResponse{Exists: false, AssistantName: assistantService.Name()})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to describe assistant")
		writeError(w, errAssistantUnreached, http.StatusBadGateway)
		return
	}

	httpext.JsonResponse(w, http.StatusOK, AssistantResponse{Exists: true, AssistantName: info.Name})
}

// HandleFiles lists the documents uploaded to the assistant
func HandleFiles(assistantService *assistant.Service, w http.ResponseWriter, r *http.Request) {
	logger := middleware.Logger(r.Context())

	if assistantService == nil {
		httpext.JsonResponse(w, http.StatusInternalServerError, FilesResponse{Status: "error", Message: errAssistantMissing})
		return
	}

	files, err := assistantService.ListFiles(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list assistant files")
		httpext.JsonResponse(w, http.StatusInternalServerError, FilesResponse{Status: "error", Message: errAssistantUnreached})
		return
	}

	if files == nil {
		files = []assistant.File{}
	}
	httpext.JsonResponse(w, http.StatusOK, FilesResponse{Status: "success", Files: files})
}

// HandleHealth answers liveness probes
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpext.JsonResponse(w, http.StatusOK, StatusResponse{Status: "ok"})
}
