package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultMaxLimiters bounds the limiter table.
const defaultMaxLimiters = 10000

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per authenticated user, falling back to the
// remote address.
//
// When the table is full, entries idle long enough for their bucket to
// refill are dropped first; a fresh limiter would behave the same. If none
// qualifies, only the least recently seen key is evicted.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	maxKeys  int
	now      func() time.Time
}

// NewRateLimiter allows perSecond requests with the given burst per key.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		maxKeys:  defaultMaxLimiters,
		now:      time.Now,
	}
}

// refill is how long an untouched bucket takes to become full again.
func (rl *RateLimiter) refill() time.Duration {
	if rl.rate <= 0 || rl.rate == rate.Inf {
		return 0
	}
	return time.Duration(float64(rl.burst) / float64(rl.rate) * float64(time.Second))
}

// allow takes one token from key's bucket.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= rl.maxKeys {
			rl.evict(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

// evict makes room for one entry. Caller holds mu.
func (rl *RateLimiter) evict(now time.Time) {
	if idle := rl.refill(); idle > 0 {
		for k, e := range rl.limiters {
			if now.Sub(e.lastSeen) >= idle {
				delete(rl.limiters, k)
			}
		}
		if len(rl.limiters) < rl.maxKeys {
			return
		}
	}
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range rl.limiters {
		if !found || e.lastSeen.Before(oldest) {
			oldestKey, oldest, found = k, e.lastSeen, true
		}
	}
	if found {
		delete(rl.limiters, oldestKey)
	}
}

// Handler answers 429 once a key exhausts its budget.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if c, ok := claimsFrom(r.Context()); ok {
			key = c.TenantID + "/" + c.Subject
		}
		if !rl.allow(key) {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			writeMessage(w, r, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
