package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestCourtesyBounds(t *testing.T) {
	c := NewCourtesy(5*time.Millisecond, 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		start := time.Now()
		if err := c.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		elapsed := time.Since(start)
		if elapsed < 5*time.Millisecond {
			t.Errorf("delay below minimum bound: %v", elapsed)
		}
	}
}

func TestCourtesyDisabled(t *testing.T) {
	c := NewCourtesy(0, 0)
	start := time.Now()
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 5*time.Millisecond {
		t.Error("disabled courtesy delay should return immediately")
	}

	var nilCourtesy *Courtesy
	if err := nilCourtesy.Wait(context.Background()); err != nil {
		t.Fatalf("nil courtesy must be a no-op, got %v", err)
	}
}

func TestCourtesyCancellation(t *testing.T) {
	c := NewCourtesy(time.Minute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Wait(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}
