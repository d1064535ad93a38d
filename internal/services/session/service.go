// Package session issues the signed browser cookie that ties a websocket
// connection to its persisted transcript.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jyotchat/jyotchat/internal/config"
	"github.com/jyotchat/jyotchat/internal/infrastructure/redis"
	"github.com/jyotchat/jyotchat/pkg/logger"
)

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type SessionStore interface {
	Set(ctx context.Context, sessionID string, claims *SessionClaims) error
	Get(ctx context.Context, sessionID string) (*SessionClaims, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
	lifetime     time.Duration
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionClaims
}

type Service struct {
	store    SessionStore
	lifetime time.Duration
}

func NewService(redisService *redis.Service) *Service {
	logger.Info(logger.SESSION, "Initialising session service")

	lifetime := config.GetSessionLifetime()

	var store SessionStore
	if redisService != nil {
		// Test Redis connection
		ctx := context.Background()
		if err := redisService.Ping(ctx); err != nil {
			logger.Error(logger.SESSION, "Redis connection failed: %v", err)
			logger.Warn(logger.SESSION, "Falling back to in-memory session storage")
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService, lifetime: lifetime}
		}
	} else {
		logger.Info(logger.SESSION, "Using in-memory session storage")
		store = newMemoryStore()
	}

	return &Service{store: store, lifetime: lifetime}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*SessionClaims),
	}
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, "Session:"+sessionID, string(data), rs.lifetime)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	data, err := rs.redisService.Get(ctx, "Session:"+sessionID)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var claims SessionClaims
	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return nil, err
	}

	return &claims, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, "Session:"+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[sessionID] = claims
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	claims, exists := ms.sessions[sessionID]
	if !exists {
		return nil, nil
	}
	return claims, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}

// CreateSession generates a new session, sets its cookie on the response
// and returns the claims
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter) (*SessionClaims, error) {
	sessionID := uuid.New().String()
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	if err := s.store.Set(ctx, sessionID, claims); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   config.GetSecureCookies(),
		SameSite: http.SameSiteStrictMode,
		Expires:  now.Add(s.lifetime),
	})

	logger.Debug(logger.SESSION, "Created session %s", sessionID)
	return claims, nil
}

// ValidateSession checks if a valid session cookie exists and returns the
// claims, or nil when there is none
func (s *Service) ValidateSession(r *http.Request) (*SessionClaims, error) {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	claims, err := parseToken(cookie.Value)
	if err != nil {
		return nil, err
	}

	// Verify session exists in store
	stored, err := s.store.Get(r.Context(), claims.SessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	return claims, nil
}

// Resume returns the caller's session, creating one when the cookie is
// missing, invalid or expired
func (s *Service) Resume(w http.ResponseWriter, r *http.Request) (*SessionClaims, error) {
	claims, err := s.ValidateSession(r)
	if err != nil {
		logger.Warn(logger.SESSION, "Discarding invalid session cookie: %v", err)
	}
	if claims != nil {
		return claims, nil
	}
	return s.CreateSession(r.Context(), w)
}

// ClearSession removes the session cookie and from storage
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(config.GetSessionCookieName()); err == nil {
		if claims, err := parseToken(cookie.Value); err == nil {
			_ = s.store.Delete(r.Context(), claims.SessionID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   config.GetSecureCookies(),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

func parseToken(value string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetJWTSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}
