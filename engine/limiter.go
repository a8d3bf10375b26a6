package engine

import (
	"context"
)

// DefaultConcurrency is the process-wide ceiling on simultaneous file-copy
// operations unless the limiter is sized explicitly.
const DefaultConcurrency = 4

// Limiter is a counting permit pool bounding how many copy units perform
// I/O at the same time, across all running jobs. A unit holds at most one
// permit and must release it on every exit path.
type Limiter struct {
	permits chan struct{}
}

// NewLimiter creates a Limiter with the given capacity (<= 0 selects
// DefaultConcurrency).
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultConcurrency
	}
	return &Limiter{permits: make(chan struct{}, capacity)}
}

// Acquire blocks until a permit is available or the context is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a previously acquired permit.
func (l *Limiter) Release() {
	<-l.permits
}

// Capacity returns the permit pool size.
func (l *Limiter) Capacity() int {
	return cap(l.permits)
}

// InFlight returns how many permits are currently held.
func (l *Limiter) InFlight() int {
	return len(l.permits)
}
