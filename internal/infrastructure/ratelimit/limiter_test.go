package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/curi/backend/internal/domain"
)

func TestLimiter_BurstThenRefusal(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 1,
		Burst:             3,
		AcquireWait:       50 * time.Millisecond,
	})

	// The full burst is admitted immediately
	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("TryAcquire() #%d = false, want true within burst", i+1)
		}
	}

	// The bucket is drained; the next try fails
	if limiter.TryAcquire() {
		t.Error("TryAcquire() = true, want false after burst drained")
	}
}

func TestLimiter_AdmissionNeverExceedsRatePlusBurst(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 20,
		Burst:             5,
		AcquireWait:       10 * time.Millisecond,
	})

	window := 250 * time.Millisecond
	deadline := time.Now().Add(window)

	admitted := 0
	for time.Now().Before(deadline) {
		if limiter.TryAcquire() {
			admitted++
		}
		time.Sleep(time.Millisecond)
	}

	// 20/s over 250ms is 5 refilled tokens plus the burst of 5.
	// Allow one extra for timer scheduling slack.
	maxAdmitted := 5 + 5 + 1
	if admitted > maxAdmitted {
		t.Errorf("admitted = %d calls in %s, want at most %d", admitted, window, maxAdmitted)
	}
}

func TestLimiter_AcquireBoundedWait(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 0.1, // one token every 10s
		Burst:             1,
		AcquireWait:       30 * time.Millisecond,
	})

	ctx := context.Background()

	// First acquire consumes the only token
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Second acquire must give up within the bounded wait
	start := time.Now()
	err := limiter.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, domain.ErrProviderRateLimited) {
		t.Errorf("Acquire() error = %v, want %v", err, domain.ErrProviderRateLimited)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Acquire() blocked %s, want bounded wait around 30ms", elapsed)
	}
}

func TestLimiter_AcquireRespectsCallerCancellation(t *testing.T) {
	limiter := New(Config{
		RequestsPerSecond: 0.1,
		Burst:             1,
		AcquireWait:       10 * time.Second,
	})

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want %v", err, context.Canceled)
	}
}

func TestLimiter_Defaults(t *testing.T) {
	limiter := New(Config{RequestsPerSecond: 4, Burst: 10})

	if got := limiter.Limit(); got != 4 {
		t.Errorf("Limit() = %v, want 4", got)
	}
	if got := limiter.Burst(); got != 10 {
		t.Errorf("Burst() = %d, want 10", got)
	}
}
