// Package config loads the server configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete server configuration.
type Config struct {
	Env       string // development or production
	HTTPAddr  string
	LogLevel  string
	LogFormat string // text or json

	// Locale forces one UI locale. Empty negotiates per request.
	Locale string

	AllowedOrigins  []string
	InsecureDev     bool
	PingInterval    time.Duration
	MaxMessageSize  int64
	SessionTTL      time.Duration
	SessionMax      int
	RateLimitPerSec int
	ToastDuration   time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	OTelServiceName string
	OTelEndpoint    string // empty disables span export
	AuditLogPath    string // "stdout", "stderr", a file path, or empty to disable
}

// Load reads .env files (missing files are ignored) and then the process
// environment. Variables already set in the environment win over files.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds a Config from a getenv-like function.
func FromLookup(getenv func(string) string) (*Config, error) {
	e := env{get: getenv}

	cfg := &Config{
		Env:             e.str("APP_ENV", "development"),
		HTTPAddr:        e.str("HTTP_ADDR", ":8080"),
		LogLevel:        e.str("LOG_LEVEL", "info"),
		LogFormat:       e.str("LOG_FORMAT", "text"),
		Locale:          e.str("LOCALE", ""),
		AllowedOrigins:  e.list("WS_ALLOWED_ORIGINS"),
		InsecureDev:     e.boolean("WS_INSECURE_DEV", false),
		PingInterval:    e.duration("WS_PING_INTERVAL", 30*time.Second),
		MaxMessageSize:  int64(e.integer("WS_MAX_MESSAGE_SIZE", 64*1024)),
		SessionTTL:      e.duration("SESSION_TTL", 30*time.Minute),
		SessionMax:      e.integer("SESSION_MAX", 10000),
		RateLimitPerSec: e.integer("RATE_LIMIT_RPS", 50),
		ToastDuration:   e.duration("TOAST_DURATION", time.Second),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		MetricsEnabled:  e.boolean("METRICS_ENABLED", true),
		OTelServiceName: e.str("OTEL_SERVICE_NAME", "livesignup"),
		OTelEndpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AuditLogPath:    e.str("AUDIT_LOG", "stdout"),
	}

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEnv, c.Env)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	if c.MaxMessageSize <= 0 {
		return ErrInvalidMaxMessageSize
	}
	if c.SessionTTL <= 0 || c.PingInterval <= 0 || c.ToastDuration <= 0 || c.ShutdownTimeout <= 0 {
		return ErrNonPositiveDuration
	}
	if c.IsProduction() && c.InsecureDev {
		return ErrInsecureInProduction
	}
	if c.IsProduction() && len(c.AllowedOrigins) == 0 {
		return ErrOriginsRequired
	}
	return nil
}

// Configuration errors.
var (
	ErrInvalidEnv            = configError("APP_ENV must be development, production or test")
	ErrInvalidLogFormat      = configError("LOG_FORMAT must be text or json")
	ErrInvalidMaxMessageSize = configError("WS_MAX_MESSAGE_SIZE must be positive")
	ErrNonPositiveDuration   = configError("durations must be positive")
	ErrInsecureInProduction  = configError("WS_INSECURE_DEV cannot be set in production")
	ErrOriginsRequired       = configError("WS_ALLOWED_ORIGINS is required in production")
)

type configError string

func (e configError) Error() string { return string(e) }

type env struct {
	get  func(string) string
	errs []error
}

func (e *env) str(key, fallback string) string {
	if v := strings.TrimSpace(e.get(key)); v != "" {
		return v
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) boolean(key string, fallback bool) bool {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(e.get(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.get(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
