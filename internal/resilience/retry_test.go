package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Retry_TransientErrorIsRetriedUntilSuccess(t *testing.T) {

	policy := NewRetryPolicy(5, time.Millisecond, 2*time.Millisecond)

	calls := 0
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
}

func Test_Retry_PermanentErrorPropagatesImmediately(t *testing.T) {

	policy := NewRetryPolicy(5, time.Millisecond, 2*time.Millisecond)

	calls := 0
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(errors.New("missing credentials"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, KindPermanent, KindOf(err))
}

func Test_Retry_ExhaustedAttemptsReturnLastError(t *testing.T) {

	policy := NewRetryPolicy(3, time.Millisecond, 2*time.Millisecond)

	calls := 0
	attempts, err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Transient(errors.New("rate limited"))
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
	assert.True(t, IsRetryable(err))
}

func Test_Retry_DelaysAreNonDecreasingAndCapped(t *testing.T) {

	policy := NewRetryPolicy(10, 100*time.Millisecond, 500*time.Millisecond)

	var prev time.Duration
	for attempt := 1; attempt < policy.MaxAttempts; attempt++ {
		delay := policy.Delay(attempt)
		assert.GreaterOrEqual(t, delay, prev)
		assert.LessOrEqual(t, delay, policy.MaxDelay)
		prev = delay
	}
	assert.Equal(t, 100*time.Millisecond, policy.Delay(1))
	assert.Equal(t, 200*time.Millisecond, policy.Delay(2))
	assert.Equal(t, 400*time.Millisecond, policy.Delay(3))
	assert.Equal(t, 500*time.Millisecond, policy.Delay(4))
}

func Test_Retry_CancelledContextStopsWaiting(t *testing.T) {

	policy := NewRetryPolicy(5, time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := policy.Do(ctx, func(ctx context.Context) error {
		return Transient(errors.New("timeout"))
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func Test_KindOf_UnclassifiedErrorIsPermanent(t *testing.T) {
	assert.Equal(t, KindPermanent, KindOf(errors.New("schema mismatch")))
	assert.Equal(t, KindTransient, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindCircuitOpen, KindOf(ErrCircuitOpen))
}
