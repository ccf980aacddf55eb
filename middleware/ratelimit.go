package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/loginGuard/logging"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket refilled at RequestsPerWindow per Window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// AuthLimit guards the credential endpoints: 5 requests per minute per IP.
var AuthLimit = RateLimitConfig{
	RequestsPerWindow: 5,
	Window:            time.Minute,
	Burst:             5,
}

// KeyExtractor groups requests into rate limit buckets.
type KeyExtractor func(*http.Request) string

// IPKey buckets requests by caller IP.
func IPKey(trustProxy bool) KeyExtractor {
	return func(r *http.Request) string { return ClientIP(r, trustProxy) }
}

const limiterIdleSweep = 5 * time.Minute

type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu        sync.Mutex
	lastSweep time.Time
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeSweep()
	return actual.(*rate.Limiter)
}

// maybeSweep drops limiters whose bucket has refilled, i.e. idle keys.
func (rl *rateLimiter) maybeSweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastSweep) < limiterIdleSweep {
		return
	}
	rl.lastSweep = time.Now()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit rejects requests over the configured rate with 429 and a
// Retry-After header. Requests with an empty key pass through.
func RateLimit(cfg RateLimitConfig, key KeyExtractor) func(http.Handler) http.Handler {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerWindow
	}
	rl := &rateLimiter{
		rate:      rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     burst,
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := rl.get(k)
			if !limiter.Allow() {
				res := limiter.Reserve()
				delay := res.Delay()
				res.Cancel()
				retryAfter := max(int(delay.Seconds()), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
				logging.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", k,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)
				WriteStatus(w, r, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
