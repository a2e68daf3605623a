package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/curi/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Limiter is a token-bucket rate limiter gating outbound provider calls.
// Tokens refill from elapsed wall-clock time; a bounded wait keeps callers
// from blocking indefinitely when the bucket is drained.
type Limiter struct {
	limiter     *rate.Limiter
	acquireWait time.Duration
}

// Config holds limiter settings.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	AcquireWait       time.Duration
}

// New creates a Limiter. Zero AcquireWait defaults to 2 seconds.
func New(cfg Config) *Limiter {
	wait := cfg.AcquireWait
	if wait == 0 {
		wait = 2 * time.Second
	}

	return &Limiter{
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		acquireWait: wait,
	}
}

// Acquire blocks until a token is available or the bounded wait elapses.
// On timeout it returns domain.ErrProviderRateLimited so the caller can
// fall back to another data source.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.acquireWait)
	defer cancel()

	if err := l.limiter.Wait(waitCtx); err != nil {
		// A live parent context means the bounded wait itself gave up.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: no token within %s", domain.ErrProviderRateLimited, l.acquireWait)
	}

	return nil
}

// TryAcquire consumes a token if one is available right now.
func (l *Limiter) TryAcquire() bool {
	return l.limiter.Allow()
}

// Limit returns the configured refill rate in requests per second.
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}

// Burst returns the configured burst capacity.
func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}
