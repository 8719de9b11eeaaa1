package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow takes a token if one is available
	Allow() bool
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the limiter
	Reset()
}

// TokenBucket refills one token every interval up to capacity
type TokenBucket struct {
	capacity float64
	interval time.Duration
	tokens   float64
	last     time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a full bucket
func NewTokenBucket(capacity int, interval time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	tb := &TokenBucket{
		capacity: float64(capacity),
		interval: interval,
		now:      time.Now,
	}
	tb.Reset()
	return tb
}

// PerMinute spaces events evenly so that at most n happen per minute.
// n <= 0 disables limiting.
func PerMinute(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(1, time.Minute/time.Duration(n))
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	_, ok := tb.take()
	return ok
}

// Wait blocks until a token is taken or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		wait, ok := tb.take()
		tb.mu.Unlock()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset fills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = tb.capacity
	tb.last = tb.now()
}

// take must be called with mu held. When no token is available it returns
// how long until the next one.
func (tb *TokenBucket) take() (time.Duration, bool) {
	now := tb.now()
	if tb.interval > 0 {
		tb.tokens += float64(now.Sub(tb.last)) / float64(tb.interval)
	} else {
		tb.tokens = tb.capacity
	}
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now

	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	wait := time.Duration((1 - tb.tokens) * float64(tb.interval))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait, false
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

func (Unlimited) Reset() {}
