package connector

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket sized in requests per minute. Tokens
// replenish continuously at rate/60 per second, capped at the capacity.
type RateLimiter struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	rate     float64 // requests per minute
	last     time.Time

	now func() time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	l := &RateLimiter{
		capacity: float64(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
		rate:     float64(requestsPerMinute),
		now:      time.Now,
	}
	l.last = l.now()
	return l
}

// Acquire consumes one token if available.
func (l *RateLimiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.replenishLocked()
	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}
	return false
}

// WaitTime reports how long until the next token becomes available.
func (l *RateLimiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.replenishLocked()
	if l.tokens >= 1.0 {
		return 0
	}
	missing := 1.0 - l.tokens
	seconds := missing / (l.rate / 60.0)
	return time.Duration(seconds * float64(time.Second))
}

func (l *RateLimiter) replenishLocked() {
	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens += elapsed * (l.rate / 60.0)
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.last = now
}
