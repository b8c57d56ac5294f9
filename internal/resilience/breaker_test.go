package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func failingOp(calls *int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		return Transient(errors.New("provider unavailable"))
	}
}

func Test_Breaker_OpensAfterThresholdConsecutiveFailures(t *testing.T) {

	breaker := NewBreaker(3, 10*time.Second)

	calls := 0
	for i := 0; i < 3; i++ {
		err := breaker.Do(context.Background(), failingOp(&calls))
		assert.Error(t, err)
	}

	assert.Equal(t, BreakerOpen, breaker.State())

	// next call fails fast without running the operation
	err := breaker.Do(context.Background(), failingOp(&calls))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, calls)
}

func Test_Breaker_SuccessResetsFailureCounter(t *testing.T) {

	breaker := NewBreaker(3, 10*time.Second)

	calls := 0
	_ = breaker.Do(context.Background(), failingOp(&calls))
	_ = breaker.Do(context.Background(), failingOp(&calls))
	_ = breaker.Do(context.Background(), func(ctx context.Context) error { return nil })
	_ = breaker.Do(context.Background(), failingOp(&calls))
	_ = breaker.Do(context.Background(), failingOp(&calls))

	assert.Equal(t, BreakerClosed, breaker.State())
}

func Test_Breaker_HalfOpenAfterResetTimeoutThenClosesOnSuccess(t *testing.T) {

	now := time.Now()
	breaker := NewBreaker(3, 10*time.Second)
	breaker.SetClock(func() time.Time { return now })

	calls := 0
	for i := 0; i < 3; i++ {
		_ = breaker.Do(context.Background(), failingOp(&calls))
	}
	assert.Equal(t, BreakerOpen, breaker.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, BreakerHalfOpen, breaker.State())

	err := breaker.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, BreakerClosed, breaker.State())
}

func Test_Breaker_HalfOpenFailureReopens(t *testing.T) {

	now := time.Now()
	breaker := NewBreaker(3, 10*time.Second)
	breaker.SetClock(func() time.Time { return now })

	calls := 0
	for i := 0; i < 3; i++ {
		_ = breaker.Do(context.Background(), failingOp(&calls))
	}

	now = now.Add(11 * time.Second)
	_ = breaker.Do(context.Background(), failingOp(&calls))

	assert.Equal(t, BreakerOpen, breaker.State())
	assert.ErrorIs(t, breaker.Do(context.Background(), failingOp(&calls)), ErrCircuitOpen)
	assert.Equal(t, 4, calls)
}

func Test_Breaker_ThresholdAndTimeoutAreClamped(t *testing.T) {

	breaker := NewBreaker(1, time.Second)
	assert.Equal(t, 3, breaker.threshold)
	assert.Equal(t, 10*time.Second, breaker.resetTimeout)

	breaker = NewBreaker(100, time.Hour)
	assert.Equal(t, 50, breaker.threshold)
	assert.Equal(t, 300*time.Second, breaker.resetTimeout)
}
