// Package audit records a redacted trail of connection and signup events.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Event types.
const (
	EventWebSocketConnect    = "websocket_connect"
	EventWebSocketDisconnect = "websocket_disconnect"
	EventOriginBlocked       = "origin_blocked"
	EventRateLimitExceeded   = "rate_limit_exceeded"
	EventStepAdvanced        = "signup_step_advanced"
	EventStepRefused         = "signup_step_refused"
	EventSubmissionRejected  = "signup_submission_rejected"
	EventSubmissionAccepted  = "signup_submission_accepted"
)

// Severity levels.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Event is one audit record.
type Event struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   string         `json:"event_type"`
	Severity    string         `json:"severity"`
	SourceIP    string         `json:"source_ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	ComponentID string         `json:"component_id,omitempty"`
	Path        string         `json:"path,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// Logger is the interface for audit sinks.
type Logger interface {
	// Log records an event. Secret details are removed first.
	Log(event Event)

	// Close flushes any pending records and closes the sink.
	Close() error
}

// secretKeys never reach an audit sink.
var secretKeys = []string{"password", "confirm", "secret", "token"}

// Redact returns a copy of details without secret keys. Keys match case
// insensitively and by substring, so "password_confirm" is dropped too.
func Redact(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if isSecret(k) {
			continue
		}
		out[k] = v
	}
	return out
}

func isSecret(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// JSONLogger writes events as JSON lines.
type JSONLogger struct {
	encoder *json.Encoder
	writer  io.Writer
	mu      sync.Mutex
}

// NewJSONLogger creates a new JSON audit logger.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{
		encoder: json.NewEncoder(w),
		writer:  w,
	}
}

// NewFileLogger creates a logger that appends to a file.
func NewFileLogger(path string) (*JSONLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return NewJSONLogger(f), nil
}

// Log records an event.
func (l *JSONLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	event.Details = Redact(event.Details)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.encoder.Encode(event); err != nil {
		fmt.Fprintf(os.Stderr, "audit: failed to encode event: %v\n", err)
	}
}

// Close closes the underlying writer when it is closable and not a
// standard stream.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == os.Stdout || l.writer == os.Stderr {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// NopLogger discards events.
type NopLogger struct{}

func (NopLogger) Log(Event) {}

func (NopLogger) Close() error { return nil }

// AsyncLogger moves encoding off the caller's goroutine.
type AsyncLogger struct {
	logger Logger
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsyncLogger creates an async wrapper around a logger.
func NewAsyncLogger(logger Logger, bufferSize int) *AsyncLogger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	a := &AsyncLogger{
		logger: logger,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.worker()
	return a
}

func (a *AsyncLogger) worker() {
	defer a.wg.Done()
	for {
		select {
		case event := <-a.events:
			a.logger.Log(event)
		case <-a.done:
			for {
				select {
				case event := <-a.events:
					a.logger.Log(event)
				default:
					return
				}
			}
		}
	}
}

// Log queues an event. When the buffer is full the event is written
// synchronously.
func (a *AsyncLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case <-a.done:
		a.logger.Log(event)
		return
	default:
	}
	select {
	case a.events <- event:
	default:
		a.logger.Log(event)
	}
}

// Close drains pending events and closes the wrapped logger.
func (a *AsyncLogger) Close() error {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
	return a.logger.Close()
}

// LogOriginBlocked records a rejected WebSocket origin.
func LogOriginBlocked(logger Logger, ip, origin, host string) {
	logger.Log(Event{
		EventType: EventOriginBlocked,
		SourceIP:  ip,
		Severity:  SeverityWarning,
		Details:   map[string]any{"origin": origin, "host": host},
	})
}

// LogRateLimitExceeded records a throttled client.
func LogRateLimitExceeded(logger Logger, ip, path string) {
	logger.Log(Event{
		EventType: EventRateLimitExceeded,
		SourceIP:  ip,
		Path:      path,
		Severity:  SeverityWarning,
	})
}
