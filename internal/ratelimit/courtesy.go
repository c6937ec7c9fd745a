package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Courtesy inserts a bounded random pause between page interactions. It
// throttles the request rate to look less mechanical; it is not a
// correctness mechanism.
type Courtesy struct {
	min time.Duration
	max time.Duration
	rnd *rand.Rand
	mu  sync.Mutex
}

// NewCourtesy creates a courtesy delay with the given bounds. The defaults
// used by the crawler are 800ms to 2.5s. A zero max disables the delay.
func NewCourtesy(min, max time.Duration) *Courtesy {
	if max < min {
		max = min
	}
	return &Courtesy{
		min: min,
		max: max,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait sleeps for a random duration within the configured bounds, or returns
// early if the context is cancelled.
func (c *Courtesy) Wait(ctx context.Context) error {
	if c == nil || c.max <= 0 {
		return nil
	}

	c.mu.Lock()
	d := c.min
	if span := c.max - c.min; span > 0 {
		d += time.Duration(c.rnd.Int63n(int64(span)))
	}
	c.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
