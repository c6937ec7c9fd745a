package proxy

import (
	"testing"
)

func TestPoolRotation(t *testing.T) {
	pool := NewPool([]string{"p1", "p2", "p3"})

	for _, want := range []string{"p1", "p2", "p3", "p1"} {
		if got := pool.Next(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}

func TestPoolSkipsFailedUntilHealthy(t *testing.T) {
	pool := NewPool([]string{"p1", "p2", "p3"})

	if got := pool.Next(); got != "p1" {
		t.Fatalf("expected p1, got %s", got)
	}

	pool.MarkFailed("p2")

	// p2 is on cooldown and must be skipped
	if got := pool.Next(); got != "p3" {
		t.Errorf("expected p3 (skipping p2), got %s", got)
	}
	if got := pool.Next(); got != "p1" {
		t.Errorf("expected p1, got %s", got)
	}
	if got := pool.Next(); got != "p3" {
		t.Errorf("expected p3 (still skipping p2), got %s", got)
	}

	pool.MarkHealthy("p2")

	if got := pool.Next(); got != "p1" {
		t.Errorf("expected p1, got %s", got)
	}
	if got := pool.Next(); got != "p2" {
		t.Errorf("expected p2 after recovery, got %s", got)
	}
}

func TestPoolEmpty(t *testing.T) {
	pool := NewPool(nil)
	if got := pool.Next(); got != "" {
		t.Errorf("empty pool must return direct connection, got %q", got)
	}
}
