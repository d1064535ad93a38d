package config

import (
	"strings"
	"sync"
	"time"
)

var (
	jwtSecretMu sync.RWMutex
	// JWTSecret signs the browser session cookie
	JWTSecret = []byte(GetEnvOrDefault("JWT_SECRET", "your-256-bit-secret"))

	// SessionCookieName is the name of the session cookie
	// Default to "jyotchat_session" if not set in environment
	SessionCookieName = GetEnvOrDefault("SESSION_COOKIE_NAME", "jyotchat_session")
)

// SetJWTSecret temporarily changes the JWT secret and returns a function to restore it
// This is primarily used for testing
func SetJWTSecret(secret []byte) func() {
	jwtSecretMu.Lock()
	previous := JWTSecret
	JWTSecret = secret
	jwtSecretMu.Unlock()

	return func() {
		jwtSecretMu.Lock()
		JWTSecret = previous
		jwtSecretMu.Unlock()
	}
}

// GetJWTSecret returns the current JWT secret in a thread-safe manner
func GetJWTSecret() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return JWTSecret
}

// GetSessionCookieName returns the configured session cookie name
func GetSessionCookieName() string {
	return SessionCookieName
}

// GetSessionLifetime returns how long a browser session and its transcript live
func GetSessionLifetime() time.Duration {
	return parseEnvDuration("SESSION_LIFETIME", 24*time.Hour)
}

// GetSecureCookies reports whether session cookies carry the Secure flag
func GetSecureCookies() bool {
	return GetEnvOrDefault("SECURE_COOKIES", "true") == "true"
}

// splitList splits a comma separated value, dropping empty entries
func splitList(value string) []string {
	result := make([]string, 0)
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// ApplyEnv re-reads the package level session settings, for use after a
// .env file has been loaded into the environment
func ApplyEnv() {
	SetJWTSecret([]byte(GetEnvOrDefault("JWT_SECRET", string(GetJWTSecret()))))
	SessionCookieName = GetEnvOrDefault("SESSION_COOKIE_NAME", SessionCookieName)
}
