package middleware

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pipewatch/pipewatch/internal/api"
)

// tokenBucket implements a token bucket rate limiter
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(ratePerSecond float64, burstCapacity int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burstCapacity),
		maxTokens:  float64(burstCapacity),
		refillRate: ratePerSecond,
		lastRefill: time.Now(),
	}
}

// refill adds tokens based on elapsed time since last refill
func (b *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
}

// allow checks if a request can proceed immediately.
// Returns true and consumes a token if available, false otherwise.
func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RateLimiter applies a per-client token bucket, keyed by remote IP.
// It guards the credential endpoints against brute forcing.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket

	ratePerSecond float64
	burstCapacity int
}

// NewRateLimiter creates a rate limiter where each client IP may make
// ratePerSecond sustained requests with the given burst capacity.
func NewRateLimiter(ratePerSecond float64, burstCapacity int) *RateLimiter {
	return &RateLimiter{
		buckets:       make(map[string]*tokenBucket),
		ratePerSecond: ratePerSecond,
		burstCapacity: burstCapacity,
	}
}

func (rl *RateLimiter) bucketFor(key string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = newTokenBucket(rl.ratePerSecond, rl.burstCapacity)
		rl.buckets[key] = b
	}
	return b
}

// Allow reports whether the client identified by key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucketFor(key).allow()
}

// Wrap wraps an http.Handler with per-IP rate limiting
func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			log.Printf("RateLimiter: throttling %s on %s", key, r.URL.Path)
			w.Header().Set("Retry-After", "1")
			api.RespondError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WrapFunc wraps an http.HandlerFunc with per-IP rate limiting
func (rl *RateLimiter) WrapFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl.Wrap(http.HandlerFunc(next)).ServeHTTP(w, r)
	}
}

// clientIP extracts the client address, preferring X-Forwarded-For when
// the service runs behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
