package web

// limiter.go bounds how many validation passes run at once.
//
// Validation and repair are CPU bound and hold a full workbook in memory, so
// the server admits at most a fixed number in parallel. Requests that find
// every slot taken wait up to maxWait, then fail with
// ErrTooManyValidations. Shutdown uses WaitForDrain to let running passes
// finish.

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrTooManyValidations is returned when no slot frees up in time.
var ErrTooManyValidations = errors.New("too many concurrent validations, please try again later")

const (
	// DefaultMaxConcurrentValidations is used when the limit is not positive.
	DefaultMaxConcurrentValidations = 4

	// DefaultMaxWaitTime is used when the wait is not positive.
	DefaultMaxWaitTime = 30 * time.Second
)

// ValidationLimiter is a semaphore over validation passes.
type ValidationLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewValidationLimiter allows maxConcurrent passes at once.
func NewValidationLimiter(maxConcurrent int, maxWait time.Duration) *ValidationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentValidations
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ValidationLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller must Release it.
func (l *ValidationLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyValidations
	}
}

// TryAcquire takes a slot only if one is free.
func (l *ValidationLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ValidationLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of running passes.
func (l *ValidationLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *ValidationLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no pass is running or ctx ends.
func (l *ValidationLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a snapshot for the health endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *ValidationLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}

// middleware holds a slot for the duration of the request.
func (l *ValidationLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := l.Acquire(r.Context()); err != nil {
			if errors.Is(err, ErrTooManyValidations) {
				w.Header().Set("Retry-After", "5")
			}
			respondError(w, r, err, statusFor(err))
			return
		}
		defer l.Release()
		next.ServeHTTP(w, r)
	})
}
