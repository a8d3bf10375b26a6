package engine

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestRetry_SucceedsWithinBound(t *testing.T) {
	// fails twice, succeeds on the third and final attempt
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig, nil, func(attempt int) error {
		attempts++
		if attempts < 3 {
			return errors.WithMessage(ErrIoFailure, "flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_ExhaustsAfterMaxAttempts(t *testing.T) {
	attempts := 0
	start := time.Now()
	err := Retry(context.Background(), DefaultRetryConfig, nil, func(attempt int) error {
		attempts++
		return errors.WithMessage(ErrIoFailure, "always")
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if attempts != MaxAttempts {
		t.Errorf("expected exactly %d attempts, got %d", MaxAttempts, attempts)
	}
	// backoff delays must be present between attempts: at least 10ms + 20ms
	if elapsed < 30*time.Millisecond {
		t.Errorf("expected backoff delays, finished in %v", elapsed)
	}
}

func TestRetry_CleanupRunsBeforeEachRetry(t *testing.T) {
	cleanups := 0
	_ = Retry(context.Background(), DefaultRetryConfig, func() { cleanups++ }, func(attempt int) error {
		return errors.WithMessage(ErrIntegrityMismatch, "mismatch")
	})

	// 3 attempts means 2 retries, each preceded by a cleanup
	if cleanups != 2 {
		t.Errorf("expected 2 cleanups, got %d", cleanups)
	}
}

func TestRetry_NonRetriableAbortsImmediately(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig, nil, func(attempt int) error {
		attempts++
		return errors.WithMessage(ErrInvalidInput, "bad path")
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestRetry_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}, nil, func(attempt int) error {
			attempts++
			return errors.WithMessage(ErrIoFailure, "flaky")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}
