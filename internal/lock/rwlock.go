package lock

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxReaders bounds the number of concurrent read guards. A writer takes the
// whole weight, so it excludes every reader and every other writer.
const maxReaders = 1 << 30

// RWLock owns a value of type T and hands out either any number of
// ReadGuards or a single Guard. Waiters are served in FIFO order, so a
// queued writer is not starved by later readers.
type RWLock[T any] struct {
	sem *semaphore.Weighted
	val T
}

// NewRWLock returns an unlocked RWLock owning v.
func NewRWLock[T any](v T) *RWLock[T] {
	return &RWLock[T]{sem: semaphore.NewWeighted(maxReaders), val: v}
}

// RLock blocks until shared access is granted or ctx is done.
func (l *RWLock[T]) RLock(ctx context.Context) (*ReadGuard[T], error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return newReadGuard(&l.val, l.runlock), nil
}

// TryRLock acquires shared access only if no writer holds or waits for
// the lock.
func (l *RWLock[T]) TryRLock() (*ReadGuard[T], bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	return newReadGuard(&l.val, l.runlock), true
}

// Lock blocks until exclusive access is granted or ctx is done.
// Calling Lock while holding a ReadGuard of l deadlocks.
func (l *RWLock[T]) Lock(ctx context.Context) (*Guard[T], error) {
	if err := l.lock(ctx); err != nil {
		return nil, err
	}
	return newGuard(&l.val, writer[T]{l}), nil
}

// TryLock acquires exclusive access only if the lock is completely free.
func (l *RWLock[T]) TryLock() (*Guard[T], bool) {
	if !l.sem.TryAcquire(maxReaders) {
		return nil, false
	}
	return newGuard(&l.val, writer[T]{l}), true
}

// With runs fn with exclusive access to the value.
func (l *RWLock[T]) With(ctx context.Context, fn func(*T) error) error {
	g, err := l.Lock(ctx)
	if err != nil {
		return err
	}
	defer g.Unlock()

	return fn(g.Value())
}

// Read runs fn with a copy of the value under shared access.
func (l *RWLock[T]) Read(ctx context.Context, fn func(T) error) error {
	g, err := l.RLock(ctx)
	if err != nil {
		return err
	}
	defer g.RUnlock()

	return fn(g.Value())
}

func (l *RWLock[T]) lock(ctx context.Context) error {
	return l.sem.Acquire(ctx, maxReaders)
}

func (l *RWLock[T]) runlock() {
	l.sem.Release(1)
}

// writer adapts the write side of an RWLock to locker.
type writer[T any] struct {
	l *RWLock[T]
}

func (w writer[T]) lock(ctx context.Context) error { return w.l.lock(ctx) }
func (w writer[T]) unlock()                        { w.l.sem.Release(maxReaders) }
