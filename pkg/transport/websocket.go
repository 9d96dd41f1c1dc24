package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/livesignup/pkg/logging"
	"github.com/gabrielmiguelok/livesignup/pkg/protocol"
)

// WebSocket security errors
var (
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// WebSocketConfig configures WebSocket security settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of allowed origins for WebSocket connections.
	// If empty and InsecureDevMode is false, only same-origin connections are allowed.
	AllowedOrigins []string

	// InsecureDevMode disables origin validation (ONLY for development).
	InsecureDevMode bool
}

// DefaultWebSocketConfig returns secure default configuration.
func DefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		AllowedOrigins:  nil,
		InsecureDevMode: false,
	}
}

// WebSocketTransport implements Transport on a server-side WebSocket.
type WebSocketTransport struct {
	*BaseTransport
	conn     *websocket.Conn
	codec    protocol.Codec
	wsConfig *WebSocketConfig
	logger   logging.Logger
	mu       sync.Mutex
}

// NewWebSocketTransport creates a transport that frames messages with codec.
func NewWebSocketTransport(config *Config, wsConfig *WebSocketConfig, codec protocol.Codec) *WebSocketTransport {
	if wsConfig == nil {
		wsConfig = DefaultWebSocketConfig()
	}
	if codec == nil {
		codec = protocol.NewJSONCodec()
	}
	return &WebSocketTransport{
		BaseTransport: NewBaseTransport(config),
		codec:         codec,
		wsConfig:      wsConfig,
		logger:        logging.NopLogger{},
	}
}

// SetLogger sets the logger used for frame-level diagnostics.
func (t *WebSocketTransport) SetLogger(l logging.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Codec returns the negotiated codec.
func (t *WebSocketTransport) Codec() protocol.Codec {
	return t.codec
}

// isOriginAllowed checks if the origin is allowed for WebSocket connections.
func (t *WebSocketTransport) isOriginAllowed(origin string, requestHost string) bool {
	if t.wsConfig.InsecureDevMode {
		return true
	}

	// Browsers always send Origin; its absence means a non-browser client.
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if originURL.Host == requestHost {
		return true
	}

	for _, allowed := range t.wsConfig.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if allowed == origin {
			return true
		}
		if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host != "" {
			if allowedURL.Host == originURL.Host {
				return true
			}
		}
	}

	return false
}

// Upgrade accepts the WebSocket handshake and starts the I/O loops.
func (t *WebSocketTransport) Upgrade(w http.ResponseWriter, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if !t.isOriginAllowed(origin, r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return ErrOriginNotAllowed
	}

	// Origin is already checked above; the library's own check would
	// reject explicitly allowed cross-origin clients.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return fmt.Errorf("accept websocket: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.SetConnected(true)

	conn.SetReadLimit(t.config.MaxMessageSize)

	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()

	return nil
}

// Close stops the transport without waiting on the peer. The write loop
// flushes frames already queued and then runs the close handshake.
func (t *WebSocketTransport) Close() error {
	return t.BaseTransport.Close()
}

// release detaches the connection and closes it. A normal closure waits
// for the peer's close frame, bounded by the library's own timeout.
func (t *WebSocketTransport) release(code websocket.StatusCode) {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return
	}
	if code != websocket.StatusNormalClosure {
		_ = conn.CloseNow()
		return
	}
	if err := conn.Close(code, "closing"); err != nil {
		t.logger.Debug("websocket close handshake failed", logging.Err(err))
	}
}

func (t *WebSocketTransport) currentConn() *websocket.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// readLoop decodes frames into the receive channel until the connection
// fails or closes.
func (t *WebSocketTransport) readLoop() {
	defer t.Close()

	for {
		conn := t.currentConn()
		if conn == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.config.ReadTimeout)
		_, data, err := conn.Read(ctx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway {
				t.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		msg, err := t.codec.Decode(data)
		if err != nil {
			t.logger.Debug("dropping undecodable frame",
				logging.String("codec", t.codec.Name()),
				logging.Err(err),
			)
			continue
		}

		if err := t.PushMessage(msg); err != nil {
			return
		}
	}
}

// writeLoop encodes queued messages onto the connection. It owns the
// connection's shutdown so a slow peer never stalls the caller of Close.
func (t *WebSocketTransport) writeLoop() {
	typ := websocket.MessageText
	if t.codec.Binary() {
		typ = websocket.MessageBinary
	}

	for {
		select {
		case msg := <-t.sendCh:
			if err := t.write(typ, msg); err != nil {
				t.Close()
				t.release(websocket.StatusInternalError)
				return
			}

		case <-t.closeCh:
			t.flush(typ)
			t.release(websocket.StatusNormalClosure)
			return
		}
	}
}

// flush writes whatever is still queued, such as the reply to phx_leave.
func (t *WebSocketTransport) flush(typ websocket.MessageType) {
	for {
		select {
		case msg := <-t.sendCh:
			if err := t.write(typ, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (t *WebSocketTransport) write(typ websocket.MessageType, msg *protocol.Message) error {
	conn := t.currentConn()
	if conn == nil {
		return ErrConnectionClosed
	}

	data, err := t.codec.Encode(msg)
	if err != nil {
		t.logger.Warn("encode failed", logging.String("event", msg.Event), logging.Err(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, typ, data)
}

// pingLoop sends periodic pings to keep intermediaries from idling the
// connection out.
func (t *WebSocketTransport) pingLoop() {
	if t.config.PingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn := t.currentConn()
			if conn == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				t.logger.Debug("websocket ping failed", logging.Err(err))
			}
		case <-t.closeCh:
			return
		}
	}
}
