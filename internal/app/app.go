// Package app assembles the signup server from its configuration.
package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/gabrielmiguelok/livesignup/client"
	"github.com/gabrielmiguelok/livesignup/internal/config"
	"github.com/gabrielmiguelok/livesignup/internal/landing"
	"github.com/gabrielmiguelok/livesignup/internal/observability"
	"github.com/gabrielmiguelok/livesignup/internal/signup"
	"github.com/gabrielmiguelok/livesignup/internal/theme"
	"github.com/gabrielmiguelok/livesignup/internal/website"
	"github.com/gabrielmiguelok/livesignup/pkg/audit"
	"github.com/gabrielmiguelok/livesignup/pkg/core"
	"github.com/gabrielmiguelok/livesignup/pkg/health"
	"github.com/gabrielmiguelok/livesignup/pkg/i18n"
	"github.com/gabrielmiguelok/livesignup/pkg/logging"
	"github.com/gabrielmiguelok/livesignup/pkg/metrics"
	"github.com/gabrielmiguelok/livesignup/pkg/router"
	"github.com/gabrielmiguelok/livesignup/pkg/transport"
)

// Routes.
const (
	SignupPath = landing.SignupPath
	ClientPath = "/_live/"
)

// DefaultLocale is the fallback UI locale.
const DefaultLocale = "ko"

// MaxHeapBytes is the heap size above which the memory check fails.
const MaxHeapBytes = 512 << 20

// Deps are the process-level services the app is built on.
type Deps struct {
	Logger  logging.Logger
	Audit   audit.Logger
	Handoff signup.Handoff
	Version string
}

// App is the assembled server.
type App struct {
	Handler http.Handler
	Router  *router.Router
	Health  *health.Checker
	Metrics *metrics.Metrics

	stopRateLimit func()
}

// New wires every route and middleware.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if deps.Logger == nil {
		deps.Logger = logging.NopLogger{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopLogger{}
	}

	schema, err := signup.NewSchema()
	if err != nil {
		return nil, fmt.Errorf("app: build schema: %w", err)
	}
	translator := signup.NewTranslator(DefaultLocale)
	m := metrics.New("livesignup")

	r := router.New(
		router.WithLogger(deps.Logger),
		router.WithMetrics(m),
		router.WithAudit(deps.Audit),
		router.WithTracer(otel.Tracer(observability.TracerName)),
		router.WithTransportConfig(transportConfig(cfg)),
		router.WithWebSocketConfig(&transport.WebSocketConfig{
			AllowedOrigins:  cfg.AllowedOrigins,
			InsecureDevMode: cfg.InsecureDev,
		}),
		router.WithSessionConfig(&router.SessionConfig{
			MaxSessions: cfg.SessionMax,
			SessionTTL:  cfg.SessionTTL,
		}),
	)

	a := &App{Router: r, Metrics: m, stopRateLimit: func() {}}

	r.Use(router.RequestID())
	r.Use(router.Recovery(deps.Logger, m))
	r.Use(logging.RequestLogger(deps.Logger))
	r.Use(router.SecureHeaders())
	if cfg.RateLimitPerSec > 0 {
		mw, stop := router.RateLimit(cfg.RateLimitPerSec, deps.Audit)
		r.Use(mw)
		a.stopRateLimit = stop
	}
	r.Use(i18n.Middleware(translator, cfg.Locale))

	r.Live(SignupPath,
		signup.New(signup.Options{
			Schema:        schema,
			Translator:    translator,
			Handoff:       deps.Handoff,
			Logger:        deps.Logger,
			Audit:         deps.Audit,
			Recorder:      m,
			ToastDuration: cfg.ToastDuration,
		}),
		router.WithLayout(Layout),
		router.WithSession(Session),
		router.WithRouteMiddleware(m.Middleware(SignupPath)),
	)

	r.Handle("/", m.Middleware("/")(landing.Handler()))
	r.Handle("/theme", m.Middleware("/theme")(theme.Handler(cfg.IsProduction())))
	r.Handle(ClientPath, http.StripPrefix(ClientPath, client.Handler()))

	hc := health.NewChecker()
	hc.SetVersion(deps.Version)
	hc.AddCriticalCheck("live_sessions", health.SessionCapacityCheck(r.Sessions().Count, r.Sessions().Max()), time.Second)
	hc.AddCheck("memory", health.MemoryCheck(MaxHeapBytes), time.Second)
	a.Health = hc

	r.Handle("/healthz", hc.LivenessHandler())
	r.Handle("/readyz", hc.ReadinessHandler())
	r.Handle("/health", hc.HealthHandler())
	if cfg.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}

	a.Handler = r
	return a, nil
}

// Close stops background work owned by the app. Live sessions are closed
// separately through Router.Sessions.
func (a *App) Close() error {
	a.stopRateLimit()
	return nil
}

func transportConfig(cfg *config.Config) *transport.Config {
	tc := transport.DefaultConfig()
	tc.PingInterval = cfg.PingInterval
	tc.MaxMessageSize = cfg.MaxMessageSize
	// Clients heartbeat every 20s; allow two missed beats before giving up.
	if tc.ReadTimeout < 2*cfg.PingInterval {
		tc.ReadTimeout = 2 * cfg.PingInterval
	}
	return tc
}

// Session carries the negotiated locale and the theme cookie into Mount.
func Session(r *http.Request) core.Session {
	return core.Session{
		signup.SessionLocale: i18n.FromContext(r.Context()).Locale(),
		signup.SessionTheme:  string(theme.FromRequest(r)),
	}
}

// Layout renders the page shell around the live signup form.
func Layout(p router.Page) string {
	loc := i18n.FromContext(p.Request.Context())

	cfg := website.DefaultPageConfig()
	cfg.Title = loc.T("signup.title")
	cfg.Description = loc.T("signup.description")
	if l, ok := p.Component.(*signup.Live); ok {
		cfg.Title = l.Title()
		cfg.Language = l.Lang()
	}
	if cfg.Language == "" {
		cfg.Language = loc.Locale()
	}
	cfg.Theme = string(theme.FromRequest(p.Request))
	cfg.Path = p.Request.URL.Path
	cfg.ThemeLabels = landing.ThemeLabels(loc)
	cfg.Scripts = p.Scripts

	return website.RenderDocument(cfg, "", p.Content)
}

// NewLogger builds the process logger from the configuration.
func NewLogger(cfg *config.Config, w io.Writer) (*logging.SlogLogger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	opts := []logging.LoggerOption{logging.WithLevel(level), logging.WithOutput(w)}
	if strings.EqualFold(cfg.LogFormat, "json") {
		opts = append(opts, logging.WithJSON())
	}
	return logging.NewSlogLogger(opts...), nil
}

// OpenAudit opens the audit sink named by path: "stdout", "stderr", a file
// path, or "" for none. Records are written from a background goroutine.
func OpenAudit(path string) (audit.Logger, error) {
	var sink audit.Logger
	switch path {
	case "":
		return audit.NopLogger{}, nil
	case "stdout":
		sink = audit.NewJSONLogger(os.Stdout)
	case "stderr":
		sink = audit.NewJSONLogger(os.Stderr)
	default:
		l, err := audit.NewFileLogger(path)
		if err != nil {
			return nil, err
		}
		sink = l
	}
	return audit.NewAsyncLogger(sink, 1024), nil
}
