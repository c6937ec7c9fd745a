// internal/retry/retry.go
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/crawlerr"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts int           // Maximum number of attempts
	BaseDelay   time.Duration // Delay before the second attempt; doubles each retry
	MaxBackoff  time.Duration // Cap on a single backoff sleep

	// Sleep waits for the backoff duration or context cancellation.
	// Overridable so tests can observe delays without real time passing.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxBackoff:  60 * time.Second,
	}
}

// ExhaustedError is returned after every attempt failed. It wraps the last
// underlying error so the original cause is never discarded.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last underlying error
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do executes fn with retry and exponential backoff. The backoff before
// retrying attempt n is BaseDelay * 2^n (n starting at 0), capped at
// MaxBackoff. Non-retryable errors short-circuit without further attempts.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = realSleep
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()

		// Success
		if err == nil {
			if attempt > 0 {
				log.Debug().
					Int("attempts", attempt+1).
					Msg("Retry succeeded")
			}
			return nil
		}

		if !crawlerr.Retryable(err) {
			log.Debug().
				Err(err).
				Msg("Error is not retryable")
			return err
		}

		lastErr = err

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			backoff := cfg.BaseDelay << uint(attempt)
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}

			log.Debug().
				Int("attempt", attempt+1).
				Int("max_attempts", cfg.MaxAttempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("Retrying after backoff")

			if err := sleep(ctx, backoff); err != nil {
				return err
			}
		}
	}

	log.Warn().
		Int("attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Max retry attempts exceeded")

	return &ExhaustedError{Attempts: cfg.MaxAttempts, Last: lastErr}
}

// realSleep waits for the backoff duration or context cancellation
func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
