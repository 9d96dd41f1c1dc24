// Package router serves live views over net/http: the first GET renders
// the page, the WebSocket upgrade on the same path runs the component.
package router

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"html"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabrielmiguelok/livesignup/pkg/audit"
	"github.com/gabrielmiguelok/livesignup/pkg/core"
	"github.com/gabrielmiguelok/livesignup/pkg/limits"
	"github.com/gabrielmiguelok/livesignup/pkg/logging"
	"github.com/gabrielmiguelok/livesignup/pkg/metrics"
	"github.com/gabrielmiguelok/livesignup/pkg/pool"
	"github.com/gabrielmiguelok/livesignup/pkg/protocol"
	"github.com/gabrielmiguelok/livesignup/pkg/transport"
)

// Common errors.
var (
	ErrNilRenderer = errors.New("component returned nil renderer")
	ErrNotJoined   = errors.New("live view not joined")
)

// DefaultClientScript is where the browser client is expected.
const DefaultClientScript = "/_live/live.js"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// ErrorHandler writes the response for a failed page render.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Page is what a Layout wraps into a document.
type Page struct {
	Request   *http.Request
	Component core.Component

	// Content is the live root holding the first render.
	Content string

	// Scripts must be loaded by the document for the page to go live.
	Scripts []string
}

// Layout renders the full document around a live view.
type Layout func(p Page) string

// LiveRoute is a registered live view.
type LiveRoute struct {
	Path       string
	Component  func() core.Component
	Layout     Layout
	Session    func(*http.Request) core.Session
	Middleware []Middleware
}

// Router routes plain HTTP handlers and live views.
type Router struct {
	mux          *http.ServeMux
	liveRoutes   map[string]*LiveRoute
	middleware   []Middleware
	errorHandler ErrorHandler

	sessions        *SessionManager
	transportConfig *transport.Config
	wsConfig        *transport.WebSocketConfig
	clientScript    string

	logger  logging.Logger
	metrics *metrics.Metrics
	audit   audit.Logger
	tracer  trace.Tracer

	mu sync.RWMutex
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics enables connection and event metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithAudit sets the audit sink for connection events.
func WithAudit(l audit.Logger) Option {
	return func(r *Router) { r.audit = l }
}

// WithTracer sets the tracer used for event spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Router) { r.tracer = t }
}

// WithTransportConfig sets WebSocket timing and sizing.
func WithTransportConfig(c *transport.Config) Option {
	return func(r *Router) { r.transportConfig = c }
}

// WithWebSocketConfig sets the origin policy.
func WithWebSocketConfig(c *transport.WebSocketConfig) Option {
	return func(r *Router) { r.wsConfig = c }
}

// WithSessionConfig sets session limits.
func WithSessionConfig(c *SessionConfig) Option {
	return func(r *Router) { r.sessions = NewSessionManager(c) }
}

// WithClientScript overrides the client script URL.
func WithClientScript(src string) Option {
	return func(r *Router) { r.clientScript = src }
}

// WithErrorHandler sets the page error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Router) { r.errorHandler = h }
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:             http.NewServeMux(),
		liveRoutes:      make(map[string]*LiveRoute),
		sessions:        NewSessionManager(nil),
		transportConfig: transport.DefaultConfig(),
		wsConfig:        transport.DefaultWebSocketConfig(),
		clientScript:    DefaultClientScript,
		logger:          logging.NopLogger{},
		audit:           audit.NopLogger{},
		tracer:          otel.Tracer("github.com/gabrielmiguelok/livesignup/pkg/router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.errorHandler == nil {
		r.errorHandler = r.defaultErrorHandler
	}
	return r
}

// Use adds global middleware. It applies to routes registered afterwards.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Sessions returns the live session manager.
func (r *Router) Sessions() *SessionManager {
	return r.sessions
}

// Live registers a live view at path.
func (r *Router) Live(path string, component func() core.Component, opts ...RouteOption) {
	route := &LiveRoute{
		Path:      path,
		Component: component,
	}
	for _, opt := range opts {
		opt(route)
	}

	r.mu.Lock()
	r.liveRoutes[path] = route
	r.mu.Unlock()

	r.Handle(path, r.handleLive(route))
}

// Route returns the live route registered at path.
func (r *Router) Route(path string) (*LiveRoute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.liveRoutes[path]
	return route, ok
}

// Handle registers a handler behind the global middleware.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mu.RLock()
	middleware := make([]Middleware, len(r.middleware))
	copy(middleware, r.middleware)
	r.mu.RUnlock()

	h := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}

	r.mux.Handle(pattern, h)
}

// HandleFunc registers a handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) defaultErrorHandler(w http.ResponseWriter, req *http.Request, err error) {
	r.logger.WithContext(req.Context()).Error("live render failed",
		logging.String("path", req.URL.Path),
		logging.Err(err),
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// handleLive serves both the page and the WebSocket of a route.
func (r *Router) handleLive(route *LiveRoute) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if isWebSocketRequest(req) {
			r.handleWebSocket(w, req, route)
			return
		}
		r.renderPage(w, req, route)
	})

	for i := len(route.Middleware) - 1; i >= 0; i-- {
		h = route.Middleware[i](h)
	}
	return h
}

// renderPage mounts a throwaway instance and renders it for the first
// paint. The connected instance is created on upgrade.
func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	component := route.Component()
	params := extractParams(req)
	session := r.extractSession(req, route)

	ctx := core.BuildContext(req.Context(), nil, session, params)
	if err := component.Mount(ctx, params, session); err != nil {
		r.errorHandler(w, req, err)
		return
	}

	body, err := render(ctx, component)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}

	page := Page{
		Request:   req,
		Component: component,
		Content:   liveRoot(route.Path, component.Name(), body),
		Scripts:   []string{r.clientScript},
	}

	var doc string
	if route.Layout != nil {
		doc = route.Layout(page)
	} else {
		doc = page.Content + fmt.Sprintf("\n<script src=\"%s\" defer></script>", html.EscapeString(r.clientScript))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, doc)
}

// liveRoot is the element the client replaces on every render.
func liveRoot(path, name, content string) string {
	return fmt.Sprintf(`<div id="lv-root" data-lv-path="%s" data-lv-name="%s">%s</div>`,
		html.EscapeString(path), html.EscapeString(name), content)
}

// connInfo is captured from the upgrade request for the audit trail.
type connInfo struct {
	ip        string
	userAgent string
	path      string
}

// handleWebSocket upgrades the request and starts the connection's
// message loop.
func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	if r.sessions.Full() {
		r.countError("session_limit")
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	codec, err := protocol.CodecFor(req.URL.Query().Get("vsn"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	info := connInfo{
		ip:        limits.ClientIP(req),
		userAgent: req.UserAgent(),
		path:      req.URL.Path,
	}

	ws := transport.NewWebSocketTransport(r.transportConfig, r.wsConfig, codec)
	ws.SetLogger(r.logger)
	if err := ws.Upgrade(w, req); err != nil {
		if errors.Is(err, transport.ErrOriginNotAllowed) {
			audit.LogOriginBlocked(r.audit, info.ip, req.Header.Get("Origin"), req.Host)
		}
		r.countError("upgrade")
		r.logger.WithContext(req.Context()).Warn("websocket upgrade failed",
			logging.String("path", info.path),
			logging.Err(err),
		)
		return
	}

	component := route.Component()
	sess := NewLiveViewSession(component, extractParams(req), r.extractSession(req, route))
	sess.Transport = ws
	sess.Socket = core.NewSocket(sess.ID, sess.Topic, ws)
	if sa, ok := component.(core.SocketAware); ok {
		sa.SetSocket(sess.Socket)
	}

	if err := r.sessions.Add(sess); err != nil {
		r.countError("session_limit")
		_ = ws.Close()
		return
	}

	if r.metrics != nil {
		r.metrics.ConnectionsActive.Inc()
		r.metrics.ConnectionsTotal.Inc()
	}
	r.audit.Log(audit.Event{
		EventType:   audit.EventWebSocketConnect,
		Severity:    audit.SeverityInfo,
		SourceIP:    info.ip,
		UserAgent:   info.userAgent,
		SessionID:   sess.ID,
		ComponentID: component.Name(),
		Path:        info.path,
		Details:     map[string]any{"codec": codec.Name()},
	})
	r.logger.Debug("live connected",
		logging.String("session_id", sess.ID),
		logging.String("codec", codec.Name()),
	)

	// The connection outlives the upgrade request, so its context does not
	// derive from req.Context(). Only the request ID carries over.
	base := logging.WithRequestID(context.Background(), logging.RequestID(req.Context()))
	ctx := core.BuildContext(base, sess.Socket, sess.Session, sess.Params)
	go r.messageLoop(ctx, sess, info)
}

// messageLoop handles one connection. Client messages and scheduled infos
// are processed one at a time, so components need no locking.
func (r *Router) messageLoop(ctx context.Context, sess *LiveViewSession, info connInfo) {
	defer r.handleDisconnect(ctx, sess, info)

	recv := sess.Transport.Receive()
	done := sess.Transport.Done()
	infos := sess.Socket.Info()

	for {
		select {
		case msg := <-recv:
			sess.Touch()
			sess.Socket.UpdateActivity()
			if !r.handleMessage(ctx, sess, msg) {
				return
			}

		case m := <-infos:
			r.handleInfo(ctx, sess, m)

		case <-done:
			return
		}
	}
}

// handleMessage dispatches one client message. It returns false when the
// client left.
func (r *Router) handleMessage(ctx context.Context, sess *LiveViewSession, msg *protocol.Message) bool {
	switch msg.Event {
	case protocol.EventHeartbeat, "phx_heartbeat":
		r.send(sess, protocol.OkReply(msg.Ref, sess.Topic, nil))

	case protocol.EventJoin:
		r.handleJoin(ctx, sess, msg)

	case protocol.EventLeave:
		r.send(sess, protocol.OkReply(msg.Ref, sess.Topic, nil))
		return false

	default:
		if msg.IsUserEvent() {
			r.handleEvent(ctx, sess, msg)
		}
	}
	return true
}

// handleJoin mounts the component on first join and replies with the full
// render.
func (r *Router) handleJoin(ctx context.Context, sess *LiveViewSession, msg *protocol.Message) {
	component := sess.Component

	if !sess.mounted {
		err := r.safeCall(ctx, "mount", func() error {
			return component.Mount(ctx, sess.Params, sess.Session)
		})
		if err != nil {
			r.sendError(sess, msg.Ref, err)
			return
		}
		sess.mounted = true
	}

	body, err := render(ctx, component)
	if err != nil {
		r.sendError(sess, msg.Ref, err)
		return
	}
	sess.lastHash = hashHTML(body)
	sess.version++

	r.send(sess, protocol.OkReply(msg.Ref, sess.Topic, map[string]any{
		"html":    body,
		"version": sess.version,
		"topic":   sess.Topic,
	}))
}

// handleEvent runs a user event inside a span, pushes the new render if it
// changed, then replies.
func (r *Router) handleEvent(ctx context.Context, sess *LiveViewSession, msg *protocol.Message) {
	if !sess.mounted {
		r.sendError(sess, msg.Ref, ErrNotJoined)
		return
	}

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "live.event "+msg.Event,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("live.event", msg.Event),
			attribute.String("live.component", sess.Component.Name()),
			attribute.String("live.session_id", sess.ID),
		),
	)
	defer span.End()

	payload := msg.Payload
	if payload == nil {
		payload = make(map[string]any)
	}

	err := r.safeCall(ctx, msg.Event, func() error {
		return sess.Component.HandleEvent(ctx, msg.Event, payload)
	})
	r.pushRender(ctx, sess)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WithContext(ctx).Warn("live event failed",
			logging.String("event", msg.Event),
			logging.String("session_id", sess.ID),
			logging.Err(err),
		)
		r.sendError(sess, msg.Ref, err)
	} else {
		r.send(sess, protocol.OkReply(msg.Ref, sess.Topic, nil))
	}

	if r.metrics != nil {
		r.metrics.ObserveEvent(msg.Event, err, time.Since(start))
	}
}

// handleInfo delivers a scheduled message and pushes the result.
func (r *Router) handleInfo(ctx context.Context, sess *LiveViewSession, m any) {
	if !sess.mounted {
		return
	}
	err := r.safeCall(ctx, "info", func() error {
		return sess.Component.HandleInfo(ctx, m)
	})
	if err != nil {
		r.logger.WithContext(ctx).Warn("live info failed",
			logging.String("session_id", sess.ID),
			logging.Err(err),
		)
	}
	r.pushRender(ctx, sess)
}

// pushRender sends the current render unless it is identical to the last
// one sent.
func (r *Router) pushRender(ctx context.Context, sess *LiveViewSession) {
	body, err := render(ctx, sess.Component)
	if err != nil {
		r.logger.WithContext(ctx).Error("live render failed",
			logging.String("session_id", sess.ID),
			logging.Err(err),
		)
		r.countError("render")
		return
	}

	h := hashHTML(body)
	if h == sess.lastHash {
		return
	}
	sess.lastHash = h
	sess.version++

	if r.metrics != nil {
		r.metrics.RenderBytes.Observe(float64(len(body)))
	}
	r.send(sess, protocol.RenderMessage(sess.Topic, body, sess.version))
}

// handleDisconnect terminates the component and releases the session.
func (r *Router) handleDisconnect(ctx context.Context, sess *LiveViewSession, info connInfo) {
	reason := sess.Reason()

	if sess.mounted {
		err := r.safeCall(ctx, "terminate", func() error {
			return sess.Component.Terminate(ctx, reason)
		})
		if err != nil {
			r.logger.Warn("terminate failed", logging.String("session_id", sess.ID), logging.Err(err))
		}
	}

	// Stops pending infos and hands the close handshake to the write loop;
	// it does not wait for the peer.
	_ = sess.Socket.Close()

	if r.metrics != nil {
		r.metrics.ConnectionsActive.Dec()
	}
	r.audit.Log(audit.Event{
		EventType:   audit.EventWebSocketDisconnect,
		Severity:    audit.SeverityInfo,
		SourceIP:    info.ip,
		SessionID:   sess.ID,
		ComponentID: sess.Component.Name(),
		Path:        info.path,
		Details: map[string]any{
			"reason":      reason.String(),
			"duration_ms": time.Since(sess.CreatedAt).Milliseconds(),
		},
	})
	r.logger.Debug("live disconnected",
		logging.String("session_id", sess.ID),
		logging.String("reason", reason.String()),
	)

	// Last, so a zero Count means every disconnect has finished.
	r.sessions.Remove(sess.ID)
}

// safeCall runs a component callback, turning a panic into an error so one
// faulty event does not take the process down.
func (r *Router) safeCall(ctx context.Context, op string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.metrics != nil {
				r.metrics.PanicsTotal.Inc()
			}
			r.logger.WithContext(ctx).Error("component panic",
				logging.String("op", op),
				logging.String("panic", fmt.Sprint(rec)),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%s: internal error", op)
		}
	}()
	return fn()
}

func (r *Router) send(sess *LiveViewSession, msg *protocol.Message) {
	if err := sess.Socket.Send(msg); err != nil {
		r.logger.Debug("live send failed",
			logging.String("session_id", sess.ID),
			logging.String("event", msg.Event),
			logging.Err(err),
		)
	}
}

func (r *Router) sendError(sess *LiveViewSession, ref string, err error) {
	r.send(sess, protocol.ErrorReply(ref, sess.Topic, err.Error()))
}

func (r *Router) countError(kind string) {
	if r.metrics != nil {
		r.metrics.ErrorsTotal.WithLabelValues(kind).Inc()
	}
}

// render writes the component's current HTML into a string.
func render(ctx context.Context, component core.Component) (string, error) {
	renderer := component.Render(ctx)
	if renderer == nil {
		return "", ErrNilRenderer
	}
	buf := pool.Get()
	defer pool.Put(buf)
	if err := renderer.Render(ctx, buf); err != nil {
		return "", fmt.Errorf("render %s: %w", component.Name(), err)
	}
	return buf.String(), nil
}

func hashHTML(s string) uint64 {
	h := fnv.New64a()
	_, _ = io.WriteString(h, s)
	return h.Sum64()
}

// extractSession builds the mount session of a request.
func (r *Router) extractSession(req *http.Request, route *LiveRoute) core.Session {
	if route.Session != nil {
		if s := route.Session(req); s != nil {
			return s
		}
	}
	session := make(core.Session)
	for _, cookie := range req.Cookies() {
		session["cookie:"+cookie.Name] = cookie.Value
	}
	return session
}

// extractParams extracts query parameters, first value only. The codec
// selector is transport-level and not passed on.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if key == "vsn" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return params
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}

// RouteOption configures a LiveRoute.
type RouteOption func(*LiveRoute)

// WithLayout sets the document layout of the first render.
func WithLayout(layout Layout) RouteOption {
	return func(r *LiveRoute) {
		r.Layout = layout
	}
}

// WithSession sets how the mount session is built from the request. The
// same function runs for the page render and the upgrade.
func WithSession(fn func(*http.Request) core.Session) RouteOption {
	return func(r *LiveRoute) {
		r.Session = fn
	}
}

// WithRouteMiddleware adds middleware to the route.
func WithRouteMiddleware(mw ...Middleware) RouteOption {
	return func(r *LiveRoute) {
		r.Middleware = append(r.Middleware, mw...)
	}
}
