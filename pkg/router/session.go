package router

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/livesignup/pkg/core"
	"github.com/gabrielmiguelok/livesignup/pkg/transport"
)

// ErrSessionLimit is returned when the manager is full.
var ErrSessionLimit = errors.New("live session limit reached")

// LiveViewSession ties one WebSocket connection to its component instance.
type LiveViewSession struct {
	ID        string
	Component core.Component
	Socket    *core.Socket
	Transport transport.Transport
	Params    core.Params
	Session   core.Session
	Topic     string
	CreatedAt time.Time

	// Unix nanoseconds.
	lastActivity atomic.Int64

	// Why the session ended; read by the message loop on close.
	reason atomic.Int32

	mounted  bool
	version  uint64
	lastHash uint64
}

// NewLiveViewSession creates a session with a fresh id.
func NewLiveViewSession(comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	now := time.Now()
	id := uuid.NewString()
	s := &LiveViewSession{
		ID:        id,
		Component: comp,
		Params:    params,
		Session:   session,
		Topic:     "lv:" + id,
		CreatedAt: now,
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Touch records client activity.
func (s *LiveViewSession) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last client message.
func (s *LiveViewSession) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Reason returns why the session is ending. It is TerminateNormal unless
// the manager closed it.
func (s *LiveViewSession) Reason() core.TerminateReason {
	return core.TerminateReason(s.reason.Load())
}

// close ends the connection; the message loop then terminates the component.
func (s *LiveViewSession) close(reason core.TerminateReason) {
	s.reason.CompareAndSwap(int32(core.TerminateNormal), int32(reason))
	if s.Transport != nil {
		_ = s.Transport.Close()
	}
}

// SessionConfig configures the session manager.
type SessionConfig struct {
	// MaxSessions caps concurrent sessions (0 = unlimited).
	MaxSessions int

	// SessionTTL is how long a session may stay silent before eviction.
	SessionTTL time.Duration
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		MaxSessions: 10000,
		SessionTTL:  30 * time.Minute,
	}
}

// SessionManager tracks every live session of the process.
type SessionManager struct {
	sessions map[string]*LiveViewSession
	config   SessionConfig
	mu       sync.RWMutex
}

// NewSessionManager creates a manager. A nil config uses the defaults.
func NewSessionManager(config *SessionConfig) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	return &SessionManager{
		sessions: make(map[string]*LiveViewSession),
		config:   *config,
	}
}

// Max returns the configured session cap.
func (m *SessionManager) Max() int {
	return m.config.MaxSessions
}

// Full reports whether another session would exceed the cap.
func (m *SessionManager) Full() bool {
	if m.config.MaxSessions <= 0 {
		return false
	}
	return m.Count() >= m.config.MaxSessions
}

// Add registers a session.
func (m *SessionManager) Add(s *LiveViewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		return ErrSessionLimit
	}
	m.sessions[s.ID] = s
	return nil
}

// Get returns a session by id.
func (m *SessionManager) Get(id string) (*LiveViewSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove unregisters a session.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup closes sessions idle for longer than the TTL and returns how many
// it closed.
func (m *SessionManager) Cleanup() int {
	if m.config.SessionTTL <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-m.config.SessionTTL)
	var idle []*LiveViewSession

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.close(core.TerminateTimeout)
	}
	return len(idle)
}

// StartCleanupRoutine runs Cleanup every interval until ctx is done.
func (m *SessionManager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CloseAll closes every session and waits until their message loops have
// unregistered them or ctx expires.
func (m *SessionManager) CloseAll(ctx context.Context) error {
	m.mu.RLock()
	all := make([]*LiveViewSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.close(core.TerminateShutdown)
		}()
	}
	wg.Wait()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for m.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
