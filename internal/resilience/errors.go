package resilience

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure for the retry and breaker primitives and for
// per-item log records.
type Kind string

const (
	// KindTransient covers network errors, timeouts, rate limits and
	// provider 5xx responses. Transient errors are retried.
	KindTransient Kind = "transient"
	// KindPermanent covers validation errors, missing credentials and
	// schema mismatches. Never retried.
	KindPermanent Kind = "permanent"
	// KindCircuitOpen marks calls rejected by an open breaker without a
	// network attempt.
	KindCircuitOpen Kind = "circuit_open"
	// KindNotFound marks a careers board that does not exist or needs a
	// board token, so the orchestrator can report a precise reason.
	KindNotFound Kind = "not_found"
)

type classifiedError struct {
	kind Kind
	err  error
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{kind: KindTransient, err: err}
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{kind: KindPermanent, err: err}
}

func NotFound(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{kind: KindNotFound, err: err}
}

// ErrCircuitOpen is returned by Breaker.Do while the circuit is open.
var ErrCircuitOpen = &classifiedError{kind: KindCircuitOpen, err: errors.New("circuit breaker is open")}

// KindOf reports the classification of err. Unclassified network-ish
// errors (net.Error, context deadline) count as transient; anything else
// unclassified is permanent.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.kind
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	return KindPermanent
}

func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// ClassifyStatus wraps err according to an HTTP response status.
func ClassifyStatus(status int, err error) error {
	switch {
	case status == http.StatusNotFound:
		return NotFound(err)
	case status == http.StatusTooManyRequests || status >= 500:
		return Transient(err)
	default:
		return Permanent(err)
	}
}
