package limiter

import (
	"context"
	"sync"
)

// Slots bounds concurrent page work in-process. Rasterizing and
// quantizing hold whole pages in memory, so the slot count is the
// ceiling on simultaneously resident pages.
type Slots struct {
	ch chan struct{}
}

// NewSlots creates a pool of n slots. Non-positive n falls back to a
// single slot.
func NewSlots(n int) *Slots {
	if n <= 0 {
		n = 1
	}
	return &Slots{ch: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context ends. Returns a
// release function that must be called exactly once.
func (s *Slots) Acquire(ctx context.Context) (func(), error) {
	select {
	case s.ch <- struct{}{}:
		return s.releaseOnce(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire reserves a slot without waiting. Returns a release
// function and true if a slot was free; otherwise nil, false.
func (s *Slots) TryAcquire() (func(), bool) {
	select {
	case s.ch <- struct{}{}:
		return s.releaseOnce(), true
	default:
		return nil, false
	}
}

func (s *Slots) releaseOnce() func() {
	var once sync.Once
	return func() { once.Do(func() { <-s.ch }) }
}

// Cap returns the slot count.
func (s *Slots) Cap() int { return cap(s.ch) }

// InUse returns the number of held slots.
func (s *Slots) InUse() int { return len(s.ch) }
