package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/livesignup/pkg/protocol"
)

// Common socket errors.
var (
	ErrSocketClosed = errors.New("socket is closed")
	ErrSendFailed   = errors.New("failed to send message")
	ErrInfoFull     = errors.New("info queue full")
)

// Transport is the connection a socket writes to.
type Transport interface {
	Send(msg *protocol.Message) error
	Close() error
	IsConnected() bool
}

// Socket is a component's handle on its connection. Besides pushing
// messages it carries the info queue through which a component schedules
// messages for its own HandleInfo.
type Socket struct {
	id    string
	topic string

	connected   bool
	connectedAt time.Time

	// Unix nanoseconds.
	lastActivity atomic.Int64

	transport Transport

	info   chan any
	timers map[*time.Timer]struct{}

	mu sync.RWMutex
}

// NewSocket creates a connected socket.
func NewSocket(id, topic string, transport Transport) *Socket {
	now := time.Now()
	s := &Socket{
		id:          id,
		topic:       topic,
		connected:   true,
		connectedAt: now,
		transport:   transport,
		info:        make(chan any, 16),
		timers:      make(map[*time.Timer]struct{}),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// ID returns the socket's unique identifier.
func (s *Socket) ID() string {
	return s.id
}

// Topic returns the wire topic of the socket's live view.
func (s *Socket) Topic() string {
	return s.topic
}

// IsConnected returns true if the socket is connected.
func (s *Socket) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.transport != nil && s.transport.IsConnected()
}

// ConnectedAt returns when the socket connected.
func (s *Socket) ConnectedAt() time.Time {
	return s.connectedAt
}

// LastActivity returns the time of last activity.
func (s *Socket) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// UpdateActivity updates the last activity timestamp.
func (s *Socket) UpdateActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Send writes a message to the client.
func (s *Socket) Send(msg *protocol.Message) error {
	s.mu.RLock()
	connected := s.connected
	transport := s.transport
	s.mu.RUnlock()

	if !connected || transport == nil || !transport.IsConnected() {
		return ErrSocketClosed
	}

	s.UpdateActivity()

	if err := transport.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Push sends an event on the socket's topic.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(protocol.NewMessage(s.topic, event, payload))
}

// Info returns the queue of scheduled messages. The connection's message
// loop drains it into the component's HandleInfo.
func (s *Socket) Info() <-chan any {
	return s.info
}

// SendInfo queues msg for HandleInfo without blocking.
func (s *Socket) SendInfo(msg any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return ErrSocketClosed
	}
	select {
	case s.info <- msg:
		return nil
	default:
		return ErrInfoFull
	}
}

// SendInfoAfter queues msg once d has elapsed. The returned function
// cancels the timer. Pending timers are stopped when the socket closes.
func (s *Socket) SendInfoAfter(d time.Duration, msg any) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return func() {}
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		_ = s.SendInfo(msg)
	})
	s.timers[t] = struct{}{}

	return func() {
		t.Stop()
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
	}
}

// PendingTimers reports how many scheduled infos have not fired yet.
func (s *Socket) PendingTimers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.timers)
}

// Close marks the socket closed, stops its timers and closes the transport.
func (s *Socket) Close() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	for t := range s.timers {
		t.Stop()
		delete(s.timers, t)
	}
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}
