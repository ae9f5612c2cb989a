// Package ratex provides keyed token-bucket rate limiting for service
// operations such as login attempts, independent of any transport.
package ratex

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting parameters.
type Config struct {
	// RequestsPerWindow is the number of attempts allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// StrictLimit suits credential endpoints (brute force prevention).
// Allows 5 attempts per minute, with all 5 available as a burst.
var StrictLimit = Config{
	RequestsPerWindow: 5,
	Window:            time.Minute,
	Burst:             5,
}

// ModerateLimit suits authenticated operations.
// Allows 20 attempts per minute, with all 20 available as a burst.
var ModerateLimit = Config{
	RequestsPerWindow: 20,
	Window:            time.Minute,
	Burst:             20,
}

// Limiter manages per-key token buckets. Keys are caller-defined, for
// example "email:ip" pairs for login attempts.
type Limiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

// New builds a keyed limiter from the given configuration.
func New(cfg Config) *Limiter {
	perSecond := float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()

	return &Limiter{
		rate:        rate.Limit(perSecond),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}
}

// Allow reports whether an attempt for key may proceed now. An empty key
// is never limited; the caller decides what keys to form.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return l.getLimiter(key).Allow()
}

// RetryAfter estimates how long until the next attempt for key would be
// allowed. Returns zero when an attempt is allowed immediately.
func (l *Limiter) RetryAfter(key string) time.Duration {
	limiter := l.getLimiter(key)
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel() // Don't actually consume the reservation
	return delay
}

// getLimiter retrieves or creates a rate limiter for the given key.
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	// Fast path: limiter already exists
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	// Slow path: create new limiter
	limiter := rate.NewLimiter(l.rate, l.burst)
	actual, _ := l.limiters.LoadOrStore(key, limiter)

	// Periodic cleanup to prevent memory leak
	l.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup removes limiters that haven't been used recently so
// ephemeral keys don't accumulate forever.
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Only cleanup once every 5 minutes
	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}

	l.lastCleanup = time.Now()

	// A limiter with a full token bucket hasn't been touched in a while.
	l.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}
