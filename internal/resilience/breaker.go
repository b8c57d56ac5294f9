package resilience

import (
	"context"
	"sync"
	"time"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker is a circuit breaker for one operation family (e.g. all calls
// to a given AI provider). It owns its own state and is injected into the
// orchestrators rather than shared through a global.
type Breaker struct {
	mu           sync.Mutex
	threshold    int
	resetTimeout time.Duration
	failures     int
	state        BreakerState
	openedAt     time.Time
	now          func() time.Time
}

func NewBreaker(threshold int, resetTimeout time.Duration) *Breaker {
	if threshold < 3 {
		threshold = 3
	}
	if threshold > 50 {
		threshold = 50
	}
	if resetTimeout < 10*time.Second {
		resetTimeout = 10 * time.Second
	}
	if resetTimeout > 300*time.Second {
		resetTimeout = 300 * time.Second
	}
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		state:        BreakerClosed,
		now:          time.Now,
	}
}

// SetClock replaces the breaker's time source. Tests only.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Do runs op unless the circuit is open, in which case it fails fast with
// ErrCircuitOpen without attempting the call.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := op(ctx)
	b.record(err)
	return err
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		b.state = BreakerHalfOpen
		return true
	default:
		return true
	}
}

// stateLocked resolves open → half_open once the reset timeout elapsed.
func (b *Breaker) stateLocked() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.resetTimeout {
		b.state = BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.state = BreakerClosed
		return
	}

	if b.state == BreakerHalfOpen {
		b.trip()
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.failures = 0
}
