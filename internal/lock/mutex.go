package lock

import "context"

// Mutex owns a value of type T and hands out at most one Guard at a time.
// Waiters are not served in FIFO order.
type Mutex[T any] struct {
	sem chan struct{}
	val T
}

// NewMutex returns an unlocked Mutex owning v.
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{sem: make(chan struct{}, 1), val: v}
}

// Lock blocks until the mutex is acquired or ctx is done.
// It returns ctx.Err() if ctx is done first, including when ctx is already
// done on entry.
func (m *Mutex[T]) Lock(ctx context.Context) (*Guard[T], error) {
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	return newGuard(&m.val, m), nil
}

// TryLock acquires the mutex only if it is free.
func (m *Mutex[T]) TryLock() (*Guard[T], bool) {
	select {
	case m.sem <- struct{}{}:
		return newGuard(&m.val, m), true
	default:
		return nil, false
	}
}

// With runs fn with exclusive access to the value. The lock is released when
// fn returns or panics.
func (m *Mutex[T]) With(ctx context.Context, fn func(*T) error) error {
	g, err := m.Lock(ctx)
	if err != nil {
		return err
	}
	defer g.Unlock()

	return fn(g.Value())
}

// Locked reports whether a guard is currently live. The answer may be stale
// by the time it is used.
func (m *Mutex[T]) Locked() bool {
	return len(m.sem) == 1
}

func (m *Mutex[T]) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutex[T]) unlock() {
	select {
	case <-m.sem:
	default:
		panic(ErrReleased)
	}
}
