package channel

import (
	"context"
	"sync/atomic"
)

// Receiver is a receiving handle.
type Receiver[T any] struct {
	c      *core[T]
	closed atomic.Bool
}

// Recv returns the next value.
//
// ok is false with a nil error once every sender is closed and the queue is
// drained; that state is terminal. err is non-nil only when ctx ends while
// waiting. A value that is already queued is returned even if ctx is done.
func (r *Receiver[T]) Recv(ctx context.Context) (v T, ok bool, err error) {
	r.mustOpen()
	c := r.c

	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			v = c.pop()
			c.mu.Unlock()
			return v, true, nil
		}
		if c.senders == 0 {
			c.mu.Unlock()
			return v, false, nil
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return v, false, ctx.Err()
		}
	}
}

// TryRecv is Recv without waiting. It returns ErrWouldBlock when the
// channel is open but empty.
func (r *Receiver[T]) TryRecv() (v T, ok bool, err error) {
	r.mustOpen()
	c := r.c

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) > 0 {
		return c.pop(), true, nil
	}
	if c.senders == 0 {
		return v, false, nil
	}
	return v, false, ErrWouldBlock
}

// Len returns the number of values waiting to be received. On a rendezvous
// channel these are the offers of blocked senders.
func (r *Receiver[T]) Len() int {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	return len(r.c.queue)
}

// Clone returns a new handle on the same channel.
func (r *Receiver[T]) Clone() *Receiver[T] {
	r.mustOpen()

	r.c.mu.Lock()
	r.c.receivers++
	r.c.mu.Unlock()

	return &Receiver[T]{c: r.c}
}

// Close releases this handle. Closing the last receiver drops queued values
// and fails pending and future sends with ErrClosed. Calling Close again on
// the same handle does nothing.
func (r *Receiver[T]) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	r.c.mu.Lock()
	defer r.c.mu.Unlock()

	r.c.receivers--
	if r.c.receivers == 0 {
		r.c.drop()
	}
}

func (r *Receiver[T]) mustOpen() {
	if r.closed.Load() {
		panic(ErrHandleClosed)
	}
}
