package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/jyotchat/jyotchat/internal/api/v1/handlers"
	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/internal/connections"
	"github.com/jyotchat/jyotchat/internal/services"
	"github.com/jyotchat/jyotchat/pkg/logger"
	"github.com/rs/zerolog/log"
)

func main() {
	// a missing .env is fine, the environment may be set another way
	envErr := godotenv.Load()
	config.ApplyEnv()
	logger.Init()

	if envErr == nil {
		logger.Info(logger.CONFIG, "Loaded environment from .env")
	}
	if string(config.GetJWTSecret()) == "your-256-bit-secret" {
		logger.Warn(logger.CONFIG, "JWT_SECRET is not set, session cookies use the default secret")
	}

	svcs, err := services.InitializeServices()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svcs.Close()

	manager := connections.NewManager(connections.DefaultTimeouts)

	server := &http.Server{
		Addr:              config.GetListenAddr(),
		Handler:           setupRouter(svcs, manager),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Info().Str("signal", sig.String()).Msg("Signal received, shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), config.GetShutdownTimeout())
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	closed := manager.CloseAll("server shutting down")
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Int("sessions_closed", closed).Msg("Server stopped")
}

func setupRouter(svcs *services.Services, manager *connections.Manager) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(r, svcs, manager)
	return r
}
