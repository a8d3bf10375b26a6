package engine

import (
	"context"
	"math/rand"
	"time"
)

// MaxAttempts is the total number of tries for one copy+verify unit,
// including the first.
const MaxAttempts = 3

// RetryConfig shapes the backoff between attempts.
type RetryConfig struct {
	// MaxAttempts is the total attempt cap (first try included).
	MaxAttempts int
	// BaseDelay is the delay before the second attempt; it doubles for
	// each attempt after that.
	BaseDelay time.Duration
}

// DefaultRetryConfig is the engine-wide policy: three attempts, 10ms base
// delay doubling each attempt, with jitter.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: MaxAttempts,
	BaseDelay:   10 * time.Millisecond,
}

// Retry runs op up to cfg.MaxAttempts times, sleeping an exponentially
// growing, jittered delay between attempts. Before every retry, cleanup is
// invoked so a partially written destination from the prior attempt is
// discarded. Non-retriable errors abort immediately.
func Retry(ctx context.Context, cfg RetryConfig, cleanup func(), op func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig.BaseDelay
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retriable(err) || attempt == cfg.MaxAttempts {
			break
		}

		if cleanup != nil {
			cleanup()
		}

		// Randomized jitter avoids synchronized retry storms across
		// concurrently failing transfers.
		wait := delay + time.Duration(rand.Int63n(int64(delay)+1))
		delay *= 2

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
