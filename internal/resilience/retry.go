package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy retries an operation with exponential backoff. Only
// transient errors consume attempts; permanent and circuit-open errors
// propagate immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxAttempts > 10 {
		maxAttempts = 10
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
}

// Do runs op up to MaxAttempts times. It returns the attempt count along
// with the last error so callers can record it in per-item logs.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (attempts int, err error) {
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil || !IsRetryable(err) || attempt >= p.MaxAttempts {
			return attempt, err
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
}

// Delay returns the backoff before the attempt following the given one:
// min(base * 2^(attempt-1), max), optionally jittered down by up to half.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.Jitter && delay > 0 {
		delay -= time.Duration(rand.Int63n(int64(delay) / 2))
	}
	return delay
}
