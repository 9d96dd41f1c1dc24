// Package limits provides per-client rate limiting.
package limits

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// ErrRateLimitExceeded is reported when a key has no tokens left.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// TokenBucket is a per-key token bucket limiter. Idle buckets are dropped
// by a background loop that Stop ends.
type TokenBucket struct {
	rate    float64 // tokens per second
	burst   int
	idle    time.Duration
	buckets sync.Map // key -> *bucket

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens   float64
	lastFill time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a limiter refilling rate tokens per second up to
// burst.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		rate:  rate,
		burst: burst,
		idle:  10 * time.Minute,
		stop:  make(chan struct{}),
	}
	go tb.cleanupLoop(time.Minute)
	return tb
}

// Allow takes one token for key.
func (tb *TokenBucket) Allow(key string) bool {
	return tb.AllowN(key, 1)
}

// AllowN takes n tokens for key if available.
func (tb *TokenBucket) AllowN(key string, n int) bool {
	b := tb.getBucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastFill).Seconds() * tb.rate
	if b.tokens > float64(tb.burst) {
		b.tokens = float64(tb.burst)
	}
	b.lastFill = now

	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

// Stop ends the cleanup loop.
func (tb *TokenBucket) Stop() {
	tb.stopOnce.Do(func() { close(tb.stop) })
}

func (tb *TokenBucket) getBucket(key string) *bucket {
	if b, ok := tb.buckets.Load(key); ok {
		return b.(*bucket)
	}
	actual, _ := tb.buckets.LoadOrStore(key, &bucket{
		tokens:   float64(tb.burst),
		lastFill: time.Now(),
	})
	return actual.(*bucket)
}

func (tb *TokenBucket) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tb.sweep(time.Now())
		case <-tb.stop:
			return
		}
	}
}

func (tb *TokenBucket) sweep(now time.Time) {
	tb.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastFill) > tb.idle {
			tb.buckets.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

// Middleware rejects requests with 429 once their key runs dry. onLimit,
// when set, is called for each rejected request.
func Middleware(tb *TokenBucket, key func(*http.Request) string, onLimit func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tb.Allow(key(r)) {
				if onLimit != nil {
					onLimit(r)
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP keys requests by the remote address host. Forwarding headers
// are ignored since clients can set them freely.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
