package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// Manager tracks the live chat session sockets so they can be counted and
// closed together on shutdown
type Manager struct {
	connections sync.Map // *websocket.Conn -> session id
	mu          sync.RWMutex
	timeouts    TimeoutConfig
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a socket serving sessionID
func (m *Manager) AddConnection(conn *websocket.Conn, sessionID string) {
	m.connections.Store(conn, sessionID)
}

// RemoveConnection removes a WebSocket connection
func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// HasConnection checks if a specific connection exists
func (m *Manager) HasConnection(conn *websocket.Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

// SessionCount returns how many sockets serve sessionID
func (m *Manager) SessionCount(sessionID string) int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		if value.(string) == sessionID {
			count++
		}
		return true
	})
	return count
}

// CloseAll sends a going-away close frame to every socket and forgets them.
// Sessions notice on their next read and clean up.
func (m *Manager) CloseAll(reason string) int {
	deadline := time.Now().Add(m.GetTimeouts().WriteWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)

	closed := 0
	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*websocket.Conn)
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = conn.Close()
		m.connections.Delete(conn)
		closed++
		return true
	})
	return closed
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() TimeoutConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeouts
}

// SetTimeouts updates the timeout configuration
func (m *Manager) SetTimeouts(timeouts TimeoutConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts = timeouts
}
