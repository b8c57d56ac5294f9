package resilience

import "context"

// Limiter caps the number of simultaneously in-flight operations.
// Waiters observe cancellation and exit without taking a slot.
type Limiter struct {
	slots chan struct{}
}

func NewLimiter(size int) *Limiter {
	if size < 1 {
		size = 1
	}
	if size > 10 {
		size = 10
	}
	return &Limiter{slots: make(chan struct{}, size)}
}

func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.slots <- struct{}{}:
		return nil
	}
}

func (l *Limiter) Release() {
	<-l.slots
}

func (l *Limiter) Size() int {
	return cap(l.slots)
}
