package crawler

import (
	"context"
	"sync"
)

// Limiter is a bounded permit set for one pipeline stage. Every permit
// corresponds to one live rendering context, so the instantaneous open-context
// count can never exceed the stage limit. The observed in-use peak is tracked
// so tests can assert the bound.
type Limiter struct {
	sem chan struct{}

	mu    sync.Mutex
	inUse int
	peak  int
}

// NewLimiter creates a limiter with the given permit count. Limits below one
// are clamped to one.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{sem: make(chan struct{}, limit)}
}

// Acquire blocks until a permit is free or the context is cancelled. The
// caller must Release on every exit path.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	l.inUse++
	if l.inUse > l.peak {
		l.peak = l.inUse
	}
	l.mu.Unlock()
	return nil
}

// Release returns a permit.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.inUse--
	l.mu.Unlock()
	<-l.sem
}

// Peak returns the highest number of permits held at once.
func (l *Limiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// InUse returns the number of permits currently held.
func (l *Limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inUse
}
