package config

import (
	"fmt"
	"strings"
	"time"
)

// GetListenAddr returns the address the HTTP server binds to
func GetListenAddr() string {
	return fmt.Sprintf(":%s", GetEnvOrDefault("PORT", "8080"))
}

// GetAllowedOrigins returns the origins allowed to open websocket sessions.
// An empty list allows any origin.
func GetAllowedOrigins() []string {
	return splitList(GetEnvOrDefault("ALLOWED_ORIGINS", ""))
}

// GetShutdownTimeout bounds how long in-flight requests get on shutdown
func GetShutdownTimeout() time.Duration {
	return parseEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second)
}

// GetServerURL is where the terminal client finds the API server
func GetServerURL() string {
	return GetEnvOrDefault("JYOTCHAT_SERVER_URL", "http://localhost:8080")
}

// GetPlayerCommand returns the command the terminal client pipes MP3 audio
// into. Empty disables read aloud.
func GetPlayerCommand() []string {
	return strings.Fields(GetEnvOrDefault("JYOTCHAT_PLAYER", "ffplay -nodisp -autoexit -loglevel quiet -"))
}
