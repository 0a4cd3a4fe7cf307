package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket shared by every call to one upstream service.
type Limiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillRate     time.Duration
	lastRefillTime time.Time
	now            func() time.Time
}

// New creates a bucket holding maxTokens that regains one token every refillRate.
func New(maxTokens int, refillRate time.Duration) *Limiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	if refillRate <= 0 {
		refillRate = time.Millisecond
	}
	return &Limiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: time.Now(),
		now:            time.Now,
	}
}

// PerMinute allows n calls per minute with a burst of n.
func PerMinute(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return New(n, time.Minute/time.Duration(n))
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait, ok := l.reserve()
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

// Allow takes a token if one is available without blocking.
func (l *Limiter) Allow() bool {
	_, ok := l.reserve()
	return ok
}

func (l *Limiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.lastRefillTime)
	if add := int(elapsed / l.refillRate); add > 0 {
		l.tokens += add
		if l.tokens > l.maxTokens {
			l.tokens = l.maxTokens
		}
		l.lastRefillTime = l.lastRefillTime.Add(time.Duration(add) * l.refillRate)
	}

	if l.tokens > 0 {
		l.tokens--
		return 0, true
	}
	return l.refillRate - now.Sub(l.lastRefillTime), false
}
