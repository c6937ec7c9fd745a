package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medline/expocrawl/internal/crawlerr"
)

func TestDoExhaustsAttemptsWithBackoff(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	boom := errors.New("boom")
	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return boom
	})

	if attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", attempts)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 inter-attempt delays, got %d", len(delays))
	}
	if delays[0] != 2*time.Second || delays[1] != 4*time.Second {
		t.Errorf("expected delays 2s then 4s, got %v", delays)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("exhausted error must wrap the original error")
	}
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	cfg := Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoShortCircuitsNonRetryable(t *testing.T) {
	cfg := Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			t.Error("should not sleep for a non-retryable error")
			return nil
		},
	}

	mismatch := crawlerr.IdentityMismatch("expected 'a', got 'b'")
	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return mismatch
	})

	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
	if !errors.Is(err, mismatch) {
		t.Errorf("expected the mismatch error back, got %v", err)
	}
}

func TestDoMaxBackoffCap(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		MaxBackoff:  5 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	_ = Do(context.Background(), cfg, func() error { return errors.New("x") })

	if len(delays) != 3 {
		t.Fatalf("expected 3 delays, got %d", len(delays))
	}
	if delays[2] != 5*time.Second {
		t.Errorf("expected third delay capped at 5s, got %v", delays[2])
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}
	err := Do(ctx, cfg, func() error { return errors.New("x") })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
