package control

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond and DefaultBurst bound one client's request
// rate against the control plane absent an explicit config override.
const (
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 20
)

// clientLimiter pairs a rate.Limiter with the last time it was touched,
// so RateLimiter.Cleanup can evict entries for clients that went away
// instead of growing the map forever over a long-lived daemon.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter bounds request rate per client key (whatever the keyFunc
// given to Middleware returns; the Server keys on the token's ClientID).
// Grounded
// on the teacher's internal/daemon/auth.RateLimiter, same per-key bucket
// map and double-checked-lock creation, but backed by golang.org/x/time/
// rate's token bucket instead of the teacher's hand-rolled one, per spec
// §6's dependency table.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter returns a RateLimiter allowing rps requests/second per
// client key, bursting up to burst. rps <= 0 uses DefaultRequestsPerSecond;
// burst <= 0 uses DefaultBurst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a request for key may proceed, consuming a token
// if so.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiterFor(key).AllowN(time.Now(), 1)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Cleanup removes limiters untouched for longer than maxAge, bounding
// memory for a daemon that outlives many short-lived CLI invocations.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// Middleware wraps next with rate limiting keyed by keyFunc(r). A request
// that exceeds its bucket gets 429 with Retry-After, matching the
// teacher's RateLimiter.Middleware response shape.
func (rl *RateLimiter) Middleware(keyFunc func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(keyFunc(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
