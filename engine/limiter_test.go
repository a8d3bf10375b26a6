package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_Ceiling(t *testing.T) {
	const capacity = 3
	const workers = 10

	limiter := NewLimiter(capacity)

	var inFlight int64
	var peak int64
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			n := atomic.AddInt64(&inFlight, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond) // hold the permit
			atomic.AddInt64(&inFlight, -1)
		}()
	}
	wg.Wait()

	if peak > capacity {
		t.Errorf("observed %d concurrent holders, capacity is %d", peak, capacity)
	}
	if limiter.InFlight() != 0 {
		t.Errorf("expected all permits released, %d still held", limiter.InFlight())
	}
}

func TestLimiter_AcquireRespectsContext(t *testing.T) {
	limiter := NewLimiter(1)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx); err == nil {
		t.Fatal("expected blocked acquire to fail on context timeout")
	}

	limiter.Release()
}

func TestLimiter_DefaultCapacity(t *testing.T) {
	limiter := NewLimiter(0)
	if limiter.Capacity() != DefaultConcurrency {
		t.Errorf("expected default capacity %d, got %d", DefaultConcurrency, limiter.Capacity())
	}
}
