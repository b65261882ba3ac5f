package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/DukeRupert/handoff/internal/clientip"
	"github.com/DukeRupert/handoff/internal/domain"
	"github.com/DukeRupert/handoff/internal/metrics"
	"github.com/DukeRupert/handoff/internal/response"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter counts failures per key inside a fixed window.
//
// Successful requests are never counted, so a user who arrives with a good
// token is never slowed down by the limiter. A key is blocked once it has
// accumulated maxAttempts failures in the current window.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	entries map[string]*rateLimitEntry

	done     chan struct{}
	stopOnce sync.Once
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
// A non-positive maxAttempts disables blocking. Call Stop to end the loop.
func NewRateLimiter(maxAttempts int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
		done:        make(chan struct{}),
	}

	if window > 0 {
		go rl.cleanup()
	}

	return rl
}

// Blocked reports whether key has used up its failures for the window.
// It does not count as an attempt.
func (rl *RateLimiter) Blocked(key string) bool {
	if rl.maxAttempts <= 0 {
		return false
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists || rl.expired(entry) {
		return false
	}
	return entry.count >= rl.maxAttempts
}

// RecordFailure counts one failed attempt for key.
func (rl *RateLimiter) RecordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[key]
	if !exists {
		rl.entries[key] = &rateLimitEntry{
			count:       1,
			windowStart: rl.now(),
		}
		return
	}

	// Check if window has expired
	if rl.expired(entry) {
		entry.count = 1
		entry.windowStart = rl.now()
		return
	}

	entry.count++
}

// Reset clears the failures for a key (e.g., after successful login).
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// TimeUntilReset returns how long until the failures for key expire.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	entry, exists := rl.entries[key]
	if !exists {
		return 0
	}

	elapsed := rl.now().Sub(entry.windowStart)
	if elapsed >= rl.window {
		return 0
	}

	return rl.window - elapsed
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// expired must be called with mu held.
func (rl *RateLimiter) expired(entry *rateLimitEntry) bool {
	return rl.now().Sub(entry.windowStart) > rl.window
}

// cleanup periodically removes expired entries to prevent memory leaks.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, entry := range rl.entries {
		if rl.expired(entry) {
			delete(rl.entries, key)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("rate limiter sweep", "removed", removed, "remaining", len(rl.entries))
	}
}

// =============================================================================
// Login Rate Limiter
// =============================================================================

// LoginRateLimiter refuses /api/login for clients that keep presenting bad
// tokens. The handler reports outcomes through RecordFailedLogin and
// ResetLogin; the middleware only reads. All three key on the same
// resolved client IP.
type LoginRateLimiter struct {
	limiter *RateLimiter
	ips     clientip.Resolver
	logger  *slog.Logger
}

// NewLoginRateLimiter creates a login limiter allowing maxFailures bad
// tokens per client IP per window.
func NewLoginRateLimiter(maxFailures int, window time.Duration, ips clientip.Resolver, logger *slog.Logger) *LoginRateLimiter {
	return &LoginRateLimiter{
		limiter: NewRateLimiter(maxFailures, window, logger),
		ips:     ips,
		logger:  logger,
	}
}

// LimitLogin returns middleware that answers 429 for blocked clients
// without looking at the token.
func (l *LoginRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := l.ips.IP(r)

		if !l.limiter.Blocked(ip) {
			next.ServeHTTP(w, r)
			return
		}

		metrics.RecordRateLimited()
		l.logger.Warn("login rate limit exceeded",
			"ip", ip,
			"path", r.URL.Path,
			"method", r.Method,
		)

		retryAfter := int(l.limiter.TimeUntilReset(ip).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		response.Error(w, r, l.logger, domain.RateLimit("middleware.LimitLogin"))
	})
}

// RecordFailedLogin records a failed login attempt for the client of r.
func (l *LoginRateLimiter) RecordFailedLogin(r *http.Request) {
	l.limiter.RecordFailure(l.ips.IP(r))
}

// ResetLogin clears the failures for the client of r after a successful login.
func (l *LoginRateLimiter) ResetLogin(r *http.Request) {
	l.limiter.Reset(l.ips.IP(r))
}

// Stop releases the limiter's background goroutine.
func (l *LoginRateLimiter) Stop() {
	l.limiter.Stop()
}
