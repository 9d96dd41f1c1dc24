package router

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/livesignup/pkg/audit"
	"github.com/gabrielmiguelok/livesignup/pkg/limits"
	"github.com/gabrielmiguelok/livesignup/pkg/logging"
	"github.com/gabrielmiguelok/livesignup/pkg/metrics"
)

// RequestID assigns every request an ID, honouring a sane incoming
// X-Request-ID, and echoes it on the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(logging.RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set(logging.RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
		})
	}
}

// Recovery turns handler panics into 500 responses. m may be nil.
func Recovery(logger logging.Logger, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					if m != nil {
						m.PanicsTotal.Inc()
					}
					logger.WithContext(r.Context()).Error("panic recovered",
						logging.String("panic", fmt.Sprint(rec)),
						logging.String("path", r.URL.Path),
						logging.String("stack", string(debug.Stack())),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeadersConfig configures security headers.
type SecureHeadersConfig struct {
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string

	// HSTS is only sent on HTTPS requests.
	HSTSEnabled bool
	HSTSMaxAge  int

	ContentSecurityPolicy string
}

// DefaultSecureHeadersConfig returns the policy for the signup pages: one
// same-origin script, inline styles, and WebSocket back to the origin.
func DefaultSecureHeadersConfig() SecureHeadersConfig {
	return SecureHeadersConfig{
		FrameOptions:      "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=()",
		HSTSEnabled:       true,
		HSTSMaxAge:        31536000,
		ContentSecurityPolicy: "default-src 'self'; " +
			"script-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"img-src 'self' data:; " +
			"connect-src 'self' ws: wss:; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'",
	}
}

// SecureHeaders middleware adds the default security headers.
func SecureHeaders() Middleware {
	return SecureHeadersWithConfig(DefaultSecureHeadersConfig())
}

// SecureHeadersWithConfig creates middleware with custom config.
func SecureHeadersWithConfig(config SecureHeadersConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", config.PermissionsPolicy)
			}
			if config.HSTSEnabled && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(config.HSTSMaxAge)+"; includeSubDomains")
			}
			if config.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", config.ContentSecurityPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles each client IP to requestsPerSecond with an equal
// burst. Rejections are written to the audit log. The returned stop
// function ends the limiter's cleanup loop.
func RateLimit(requestsPerSecond int, auditLogger audit.Logger) (mw Middleware, stop func()) {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	tb := limits.NewTokenBucket(float64(requestsPerSecond), requestsPerSecond)
	onLimit := func(r *http.Request) {
		audit.LogRateLimitExceeded(auditLogger, limits.ClientIP(r), r.URL.Path)
	}
	return limits.Middleware(tb, limits.ClientIP, onLimit), tb.Stop
}
