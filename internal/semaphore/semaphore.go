// Package semaphore provides a counting semaphore with move-once permits.
package semaphore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/iliamunaev/coordination-core/internal/apperr"
)

// ErrDoubleRelease is the panic value raised when a permit is released twice.
var ErrDoubleRelease = apperr.New("semaphore: permit already released", "released")

// Semaphore limits how many holders may be inside a section at once.
type Semaphore struct {
	sem chan struct{}
}

// New creates a semaphore with capacity permits. A zero capacity is allowed:
// every Acquire then blocks until its context is done.
func New(capacity int) (*Semaphore, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("semaphore: capacity %d must be >= 0: %w", capacity, apperr.ErrInvalidConfig)
	}
	return &Semaphore{sem: make(chan struct{}, capacity)}, nil
}

// Acquire reserves one permit.
// If none is available, it blocks until one is released
// or the context is canceled.
// It returns ctx.Err() if acquisition is aborted due to cancellation.
func (s *Semaphore) Acquire(ctx context.Context) (*Permit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.sem <- struct{}{}:
		return newPermit(s), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire reserves a permit only if one is available right now.
func (s *Semaphore) TryAcquire() (*Permit, bool) {
	select {
	case s.sem <- struct{}{}:
		return newPermit(s), true
	default:
		return nil, false
	}
}

// Do runs fn while holding a permit. The permit is released when fn
// returns or panics.
func (s *Semaphore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p, err := s.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release()

	return fn(ctx)
}

// Available returns the number of free permits.
func (s *Semaphore) Available() int {
	return cap(s.sem) - len(s.sem)
}

// Capacity returns the total number of permits.
func (s *Semaphore) Capacity() int {
	return cap(s.sem)
}

func (s *Semaphore) release() {
	<-s.sem
}

// Permit is one unit of a Semaphore's capacity.
type Permit struct {
	s        *Semaphore
	released atomic.Bool
}

func newPermit(s *Semaphore) *Permit {
	return &Permit{s: s}
}

// Release returns the permit. It panics with ErrDoubleRelease if called
// more than once.
func (p *Permit) Release() {
	if !p.released.CompareAndSwap(false, true) {
		panic(ErrDoubleRelease)
	}
	p.s.release()
}
