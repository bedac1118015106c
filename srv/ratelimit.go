package srv

import (
	"sync"
	"time"
)

// Word submits are the only rate-limited event; yoinks have their own
// per-player cooldown. Starved submits are dropped with no reply.
const (
	submitRefillPerSec = 5.0
	submitBurst        = 10
)

// tokenBucket implements the token bucket algorithm.
type tokenBucket struct {
	tokens    float64
	max       float64
	rate      float64
	lastCheck time.Time
}

// newTokenBucket creates a new token bucket starting full.
func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:    float64(burst),
		max:       float64(burst),
		rate:      rate,
		lastCheck: time.Now(),
	}
}

// allow checks if a token is available and consumes one if so.
func (tb *tokenBucket) allow() bool {
	now := time.Now()
	elapsed := now.Sub(tb.lastCheck).Seconds()
	tb.lastCheck = now

	// Add tokens based on elapsed time
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.max {
		tb.tokens = tb.max
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// SubmitLimiter rate-limits word submissions for a single connection.
// It is created with the connection and discarded on disconnect.
type SubmitLimiter struct {
	mu     sync.Mutex
	bucket *tokenBucket
}

// NewSubmitLimiter creates a limiter with a full bucket.
func NewSubmitLimiter() *SubmitLimiter {
	return &SubmitLimiter{bucket: newTokenBucket(submitRefillPerSec, submitBurst)}
}

// Allow consumes one token if available.
func (l *SubmitLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket.allow()
}
