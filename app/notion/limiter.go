package notion

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket shared by everything that talks to the Notion
// API. Notion allows an average of three requests per second per
// integration; all writers and the bootstrap path draw from one bucket so
// concurrent workers stay inside that budget together.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	tokens   float64
	burst    float64
	last     time.Time
}

// NewLimiter returns a limiter that allows rate requests per interval, with
// a burst capacity equal to the rate.
func NewLimiter(rate int, interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval / time.Duration(rate),
		tokens:   float64(rate),
		burst:    float64(rate),
		last:     time.Now(),
	}
}

// Wait blocks until a token is available or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	l.tokens += float64(now.Sub(l.last)) / float64(l.interval)
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		l.mu.Unlock()
		return nil
	}

	wait := time.Duration((1 - l.tokens) * float64(l.interval))
	l.tokens--
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
