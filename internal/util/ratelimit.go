package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a single-token bucket refilled at a fixed rate. It paces
// calendar-feed requests so a long backfill stays under the provider's
// per-minute request quota. Capacity is one token: bursts are never allowed.
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	tokens float64
	last   time.Time
}

// NewRateLimiter returns a limiter admitting perMinute calls per minute.
// The bucket starts full, so the first Wait returns immediately.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		rate:   float64(perMinute) / 60.0,
		tokens: 1,
		last:   time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled. Instead of
// polling it sleeps for the exact refill time of the missing fraction, then
// re-checks under the lock in case another waiter took the token first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
		if rl.tokens > 1 {
			rl.tokens = 1
		}
		rl.last = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
