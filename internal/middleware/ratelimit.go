package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tanmay/mountgate/internal/app"
)

// bucket represents a token bucket for a single client.
// Tokens are consumed per request and refill over time.
type bucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens added per second
	lastRefill time.Time
}

// refill adds tokens based on how much time has passed since last refill.
// Tokens are capped at maxTokens.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
}

// allow refills the bucket and tries to consume one token.
func (b *bucket) allow(now time.Time) bool {
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RateLimiter holds a bucket per client IP.
type RateLimiter struct {
	buckets    map[string]*bucket
	maxTokens  float64
	refillRate float64
	mu         sync.Mutex
	now        func() time.Time
}

// NewRateLimiter creates a rate limiter.
// maxTokens = burst size (e.g., 10 requests)
// refillRate = sustained rate (e.g., 1.0 = 1 token/sec)
func NewRateLimiter(maxTokens, refillRate float64) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		now:        time.Now,
	}
}

// getBucket returns the bucket for a given IP, creating one if needed.
func (rl *RateLimiter) getBucket(ip string) *bucket {
	if b, exists := rl.buckets[ip]; exists {
		return b
	}
	b := &bucket{
		tokens:     rl.maxTokens,
		maxTokens:  rl.maxTokens,
		refillRate: rl.refillRate,
		lastRefill: rl.now(),
	}
	rl.buckets[ip] = b
	return b
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.getBucket(ip).allow(rl.now())
}

// Handler rejects clients that have exhausted their bucket with 429.
func (rl *RateLimiter) Handler() app.Handler {
	return func(c *app.Context, next app.Next) error {
		ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			ip = c.Request.RemoteAddr
		}

		if !rl.Allow(ip) {
			c.Writer.Header().Set("Retry-After", "1")
			return app.NewError(http.StatusTooManyRequests, "Too Many Requests")
		}

		return next()
	}
}
