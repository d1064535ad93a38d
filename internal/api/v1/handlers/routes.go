package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jyotchat/jyotchat/internal/api/v1/handlers/realtime"
	v1mware "github.com/jyotchat/jyotchat/internal/api/v1/middleware"
	"github.com/jyotchat/jyotchat/internal/connections"
	"github.com/jyotchat/jyotchat/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(router *mux.Router, services *services.Services, manager *connections.Manager) {
	router.Use(v1mware.RequestID, v1mware.Metrics)

	// Operational routes
	router.HandleFunc("/healthz", HandleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API routes share the global limit
	api := router.PathPrefix("/api").Subrouter()
	api.Use(v1mware.RateLimit("global"))

	api.Handle("/chat", v1mware.RateLimit("chat_stream")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChat(services.GetChatService(), w, r)
	}))).Methods("POST")
	api.Handle("/suggest-questions", v1mware.RateLimit("suggest_questions")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleSuggestQuestions(services.GetSuggestionService(), w, r)
	}))).Methods("POST")
	api.Handle("/translate", v1mware.RateLimit("translate")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleTranslate(services.GetTranslationService(), w, r)
	}))).Methods("POST")
	api.Handle("/read-aloud", v1mware.RateLimit("read_aloud")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleReadAloud(services.GetSpeechService(), w, r)
	}))).Methods("POST")

	api.HandleFunc("/assistants", func(w http.ResponseWriter, r *http.Request) {
		HandleAssistants(services.GetAssistantService(), w, r)
	}).Methods("GET")
	api.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		HandleFiles(services.GetAssistantService(), w, r)
	}).Methods("GET")

	api.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		HandleClearSession(services.GetSessionService(), services.GetTranscriptService(), w, r)
	}).Methods("DELETE")

	// Websocket chat sessions
	router.Handle("/ws/chat", v1mware.RateLimit("chat_session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realtime.HandleChatSession(services, manager, w, r)
	}))).Methods("GET")
}
