package channel

import (
	"context"
	"sync/atomic"
)

// Sender is a sending handle.
type Sender[T any] struct {
	c      *core[T]
	closed atomic.Bool
}

// Send delivers v.
//
// On an unbounded channel it enqueues and returns immediately; ctx is not
// consulted. On a rendezvous channel it blocks until a receiver has taken v
// or ctx is done; in the latter case v is withdrawn and ctx.Err() returned,
// unless a receiver took it first.
//
// Send returns ErrClosed if every receiver is gone, including when the last
// receiver closes while a rendezvous send is waiting.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	s.mustOpen()
	c := s.c

	if c.rendezvous {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	e := &envelope[T]{val: v}
	if c.rendezvous {
		e.done = make(chan struct{})
	}

	c.mu.Lock()
	if c.receivers == 0 {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, e)
	c.broadcast()
	c.mu.Unlock()

	if !c.rendezvous {
		return nil
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		c.mu.Lock()
		withdrawn := c.withdraw(e)
		c.mu.Unlock()
		if withdrawn {
			return ctx.Err()
		}
		<-e.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.state == dropped {
		return ErrClosed
	}
	return nil
}

// Clone returns a new handle on the same channel.
func (s *Sender[T]) Clone() *Sender[T] {
	s.mustOpen()

	s.c.mu.Lock()
	s.c.senders++
	s.c.mu.Unlock()

	return &Sender[T]{c: s.c}
}

// Close releases this handle. Closing the last sender lets receivers
// observe the end of the stream once the queue is drained. Calling Close
// again on the same handle does nothing.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	s.c.senders--
	if s.c.senders == 0 {
		s.c.broadcast()
	}
}

func (s *Sender[T]) mustOpen() {
	if s.closed.Load() {
		panic(ErrHandleClosed)
	}
}
