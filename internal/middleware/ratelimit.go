package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/assetpulse/assetpulse-core/internal/metrics"
)

// RateLimiter implements a token bucket rate limiter keyed per client.
// A limit of zero disables limiting entirely, which is what embedded
// edge collectors posting on a fixed cadence typically want.
type RateLimiter struct {
	mu            sync.Mutex
	clients       map[string]*bucket
	limitPerMin   int
	cleanupTicker *time.Ticker
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with the specified requests per minute.
func NewRateLimiter(limitPerMin int) *RateLimiter {
	rl := &RateLimiter{
		clients:       make(map[string]*bucket),
		limitPerMin:   limitPerMin,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	// Cleanup stale entries every 5 minutes
	go rl.cleanup()

	return rl
}

// Middleware returns an HTTP middleware that enforces rate limiting.
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.RemoteAddr) {
			metrics.IngestRejected.WithLabelValues("rate_limited").Inc()
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next(w, r)
	}
}

// Allow checks if a request from the given client should be allowed.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.limitPerMin <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, exists := rl.clients[client]

	if !exists {
		// New client, create bucket with full tokens
		rl.clients[client] = &bucket{
			tokens:     rl.limitPerMin - 1,
			lastRefill: now,
		}
		return true
	}

	// Refill tokens based on time elapsed
	elapsed := now.Sub(b.lastRefill)
	tokensToAdd := int(elapsed.Minutes() * float64(rl.limitPerMin))

	if tokensToAdd > 0 {
		b.tokens = minInt(rl.limitPerMin, b.tokens+tokensToAdd)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// cleanup removes stale client entries.
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.mu.Lock()
		now := time.Now()
		for client, b := range rl.clients {
			// Remove clients that haven't made requests in 10 minutes
			if now.Sub(b.lastRefill) > 10*time.Minute {
				delete(rl.clients, client)
			}
		}
		rl.mu.Unlock()
	}
}

// Stop stops the cleanup ticker.
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
