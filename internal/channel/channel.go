// Package channel provides multi-producer multi-consumer channels with
// explicit handle lifetimes: an unbounded queue and a zero-capacity
// rendezvous.
//
// Every Sender and Receiver is a handle. Clone adds a handle, Close removes
// it. When the last Sender is closed, receivers drain what is queued and
// then observe the closed signal. When the last Receiver is closed, queued
// values are dropped and every Send fails with ErrClosed.
package channel

import (
	"github.com/iliamunaev/coordination-core/internal/apperr"
	"github.com/iliamunaev/coordination-core/internal/syncs"
)

var (
	// ErrClosed is returned by Send once every receiver has been closed.
	ErrClosed = apperr.New("channel: closed", "closed")

	// ErrWouldBlock is returned by TryRecv when no value is ready.
	ErrWouldBlock = apperr.New("channel: no value ready", "would_block")

	// ErrHandleClosed is the panic value raised when a closed handle is used.
	ErrHandleClosed = apperr.New("channel: use of closed handle", "released")
)

type state uint8

const (
	pending state = iota
	delivered
	dropped
)

// envelope carries one sent value. done is only set for rendezvous sends
// and is closed once the value is delivered or dropped.
type envelope[T any] struct {
	val   T
	done  chan struct{}
	state state
}

type core[T any] struct {
	rendezvous bool

	mu        syncs.Mutex
	queue     []*envelope[T]
	senders   int
	receivers int
	// wake is closed and replaced whenever a value is queued or the last
	// sender goes away.
	wake chan struct{}
}

func newCore[T any](rendezvous bool) *core[T] {
	return &core[T]{
		rendezvous: rendezvous,
		senders:    1,
		receivers:  1,
		wake:       make(chan struct{}),
	}
}

// New returns the two ends of an unbounded channel. Send never blocks.
func New[T any]() (*Sender[T], *Receiver[T]) {
	c := newCore[T](false)
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// NewRendezvous returns the two ends of a channel with no buffer: Send
// returns only once a receiver has taken the value.
func NewRendezvous[T any]() (*Sender[T], *Receiver[T]) {
	c := newCore[T](true)
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// broadcast must be called with c.mu held.
func (c *core[T]) broadcast() {
	close(c.wake)
	c.wake = make(chan struct{})
}

// pop must be called with c.mu held and a non-empty queue.
func (c *core[T]) pop() T {
	e := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]

	e.state = delivered
	if e.done != nil {
		close(e.done)
	}
	return e.val
}

// withdraw removes e if it is still queued. Must be called with c.mu held.
func (c *core[T]) withdraw(e *envelope[T]) bool {
	if e.state != pending {
		return false
	}
	for i, q := range c.queue {
		if q == e {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			e.state = dropped
			return true
		}
	}
	return false
}

// drop discards every queued value. Must be called with c.mu held.
func (c *core[T]) drop() {
	for _, e := range c.queue {
		e.state = dropped
		if e.done != nil {
			close(e.done)
		}
	}
	c.queue = nil
}
