// SolGuard - Solidity compile & audit MCP server
// License: MIT
//
// Copyright (c) 2026 SolGuard contributors

package mcp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session tracks per-connection protocol state. The only mutable field is
// the initialized flag, flipped exactly once by notifications/initialized
// and never reverted.
type Session struct {
	id          string
	createdAt   time.Time
	initialized atomic.Bool
}

// NewSession creates a fresh, uninitialized session.
func NewSession() *Session {
	return &Session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// MarkInitialized records the client's initialize ack. Monotonic.
func (s *Session) MarkInitialized() { s.initialized.Store(true) }

// Initialized reports whether the client completed the initialize handshake.
func (s *Session) Initialized() bool { return s.initialized.Load() }

// SessionManager tracks live sessions for transports that multiplex many
// logical connections over one listener. The stdio transport does not need
// it; the HTTP transport keys sessions by the Mcp-Session-Id header.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty session table.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Create registers and returns a new session.
func (m *SessionManager) Create() *Session {
	sess := NewSession()
	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()
	return sess
}

// Get returns the session with the given id.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// GetOrCreate returns the session for id, or a fresh session when id is
// empty or unknown (first contact).
func (m *SessionManager) GetOrCreate(id string) *Session {
	if id != "" {
		if sess, ok := m.Get(id); ok {
			return sess
		}
	}
	return m.Create()
}

// Remove drops a session when its connection ends.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
