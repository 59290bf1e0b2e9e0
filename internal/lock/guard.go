package lock

import (
	"context"
	"sync/atomic"

	"github.com/iliamunaev/coordination-core/internal/apperr"
)

// ErrReleased is the panic value raised when a guard is released twice or
// used after release.
var ErrReleased = apperr.New("lock: guard already released", "released")

// locker is the part of a lock a guard needs to give access back.
type locker interface {
	lock(ctx context.Context) error
	unlock()
}

// Guard is exclusive access to the value of a Mutex or the write side of an
// RWLock. It must not be copied.
type Guard[T any] struct {
	val   *T
	owner locker
	held  atomic.Bool
}

func newGuard[T any](val *T, owner locker) *Guard[T] {
	g := &Guard[T]{val: val, owner: owner}
	g.held.Store(true)
	return g
}

// Value returns the protected value. The pointer must not be retained after
// Unlock.
func (g *Guard[T]) Value() *T {
	g.mustHold()
	return g.val
}

// Unlock releases the lock. It panics with ErrReleased if the guard was
// already released.
func (g *Guard[T]) Unlock() {
	if !g.held.CompareAndSwap(true, false) {
		panic(ErrReleased)
	}
	g.owner.unlock()
}

func (g *Guard[T]) mustHold() {
	if !g.held.Load() {
		panic(ErrReleased)
	}
}

// ReadGuard is shared access to the value of an RWLock.
type ReadGuard[T any] struct {
	val     *T
	release func()
	held    atomic.Bool
}

func newReadGuard[T any](val *T, release func()) *ReadGuard[T] {
	g := &ReadGuard[T]{val: val, release: release}
	g.held.Store(true)
	return g
}

// Value returns a copy of the protected value. Reference types inside T
// (maps, slices, pointers) are shared and must be treated as read-only.
func (g *ReadGuard[T]) Value() T {
	if !g.held.Load() {
		panic(ErrReleased)
	}
	return *g.val
}

// RUnlock releases the read lock. It panics with ErrReleased if the guard
// was already released.
func (g *ReadGuard[T]) RUnlock() {
	if !g.held.CompareAndSwap(true, false) {
		panic(ErrReleased)
	}
	g.release()
}
