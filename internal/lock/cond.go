package lock

import (
	"context"

	"github.com/iliamunaev/coordination-core/internal/syncs"
)

// Cond is a condition variable bound to a Mutex. The predicate guarded by
// the mutex is the source of truth: waiters must re-check it after every
// wake-up, and a notify sent while nobody waits is dropped.
type Cond[T any] struct {
	m *Mutex[T]

	mu      syncs.Mutex
	waiters []chan struct{}
}

// NewCond returns a condition variable for m.
func NewCond[T any](m *Mutex[T]) *Cond[T] {
	return &Cond[T]{m: m}
}

// Wait releases g, suspends until notified or ctx is done, and re-acquires
// the mutex before returning. g is held again on return in every case.
//
// It returns ctx.Err() only if ctx ended before a notification reached this
// waiter. g must be a live guard of the cond's mutex.
func (c *Cond[T]) Wait(ctx context.Context, g *Guard[T]) error {
	if g.owner != locker(c.m) {
		panic("lock: Cond.Wait with a guard of another lock")
	}
	g.mustHold()

	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	g.held.Store(false)
	c.m.unlock()

	var err error
	select {
	case <-ch:
	case <-ctx.Done():
		if c.remove(ch) {
			err = ctx.Err()
		}
	}

	// Re-acquire even if ctx is done; the caller still owns g.
	_ = c.m.lock(context.WithoutCancel(ctx))
	g.held.Store(true)

	return err
}

// WaitUntil waits until pred holds for the protected value. pred is always
// evaluated with the mutex held.
func (c *Cond[T]) WaitUntil(ctx context.Context, g *Guard[T], pred func(*T) bool) error {
	for !pred(g.Value()) {
		if err := c.Wait(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// NotifyOne wakes one waiter, if any. Which one is unspecified.
func (c *Cond[T]) NotifyOne() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.waiters) == 0 {
		return
	}
	close(c.waiters[0])
	c.waiters = c.waiters[1:]
}

// NotifyAll wakes every waiter.
func (c *Cond[T]) NotifyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}

// Waiters returns the number of suspended waiters.
func (c *Cond[T]) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}

// remove withdraws ch. It reports false if ch was already notified.
func (c *Cond[T]) remove(ch chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}
