package crawler

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func TestLimiterPeakNeverExceedsLimit(t *testing.T) {
	const limit = 3
	const tasks = 40

	lim := NewLimiter(limit)
	var wg sync.WaitGroup

	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lim.Acquire(context.Background()); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer lim.Release()

			if inUse := lim.InUse(); inUse > limit {
				t.Errorf("in-use count %d exceeds limit %d", inUse, limit)
			}
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		}()
	}
	wg.Wait()

	if peak := lim.Peak(); peak > limit {
		t.Errorf("peak %d exceeds limit %d", peak, limit)
	}
	if peak := lim.Peak(); peak < 1 {
		t.Errorf("expected at least one held permit, peak %d", peak)
	}
	if inUse := lim.InUse(); inUse != 0 {
		t.Errorf("expected all permits released, %d in use", inUse)
	}
}

func TestLimiterAcquireRespectsCancellation(t *testing.T) {
	lim := NewLimiter(1)
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := lim.Acquire(ctx); err == nil {
		t.Fatal("expected cancellation while waiting for a permit")
	}
	lim.Release()
}
