package remote

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig bounds failed authentications per client address.
type RateLimitConfig struct {
	MaxFailures     int           // Failures before lockout (default: 10)
	WindowDuration  time.Duration // Time window for counting failures (default: 15m)
	LockoutDuration time.Duration // How long to lock out after max failures (default: 5m)
	CleanupInterval time.Duration // How often to clean up expired records (default: 5m)
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxFailures:     10,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 5 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// rateLimiter tracks failed authentications per IP using a fixed window.
// A locked out address is refused before the websocket upgrade.
type rateLimiter struct {
	mu       sync.RWMutex
	attempts map[string]*attemptRecord
	cfg      RateLimitConfig

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &rateLimiter{
		attempts:    make(map[string]*attemptRecord),
		cfg:         cfg,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// allow reports whether ip may connect, and if not, for how long it is
// locked out.
func (rl *rateLimiter) allow(ip string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	record, exists := rl.attempts[ip]
	if !exists {
		return true, 0
	}
	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	return true, 0
}

// recordFailure counts a rejected command. It returns true when ip is
// locked out from now on.
func (rl *rateLimiter) recordFailure(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[ip]
	if !exists {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[ip] = record
	}

	// Reset if window or lockout expired
	if now.Sub(record.firstAttempt) > rl.cfg.WindowDuration ||
		(!record.lockedUntil.IsZero() && !now.Before(record.lockedUntil)) {
		record.count = 0
		record.firstAttempt = now
		record.lockedUntil = time.Time{}
	}

	record.count++
	if record.count >= rl.cfg.MaxFailures {
		record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
		return true
	}
	return false
}

// recordSuccess clears the failures of ip.
func (rl *rateLimiter) recordSuccess(ip string) {
	rl.mu.Lock()
	delete(rl.attempts, ip)
	rl.mu.Unlock()
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanup() {
	now := time.Now()
	expiry := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, record := range rl.attempts {
		windowExpired := now.Sub(record.firstAttempt) > expiry
		lockoutExpired := record.lockedUntil.IsZero() || now.After(record.lockedUntil)
		if windowExpired && lockoutExpired {
			delete(rl.attempts, ip)
		}
	}
}

// middleware refuses locked out addresses with 429 before the upgrade.
// The peer address is used, never forwarding headers.
func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.allow(c.RemoteIP())
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many rejected commands",
				"retry_after": retryAfter.Round(time.Second).String(),
			})
			return
		}
		c.Next()
	}
}

// retrySeconds rounds d up to whole seconds for the Retry-After header.
func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
