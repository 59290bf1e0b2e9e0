// Package counter provides a shared integer counter with a selectable
// ordering mode.
package counter

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/iliamunaev/coordination-core/internal/apperr"
)

// Ordering selects how a Counter trades ordering guarantees for throughput.
type Ordering int

const (
	// Sequential keeps every operation in one total order. Use it when the
	// observed value decides whether a side effect happens.
	Sequential Ordering = iota
	// Relaxed only guarantees that no increment is lost. Reads taken while
	// writers are active may lag; the value after all writers are joined is
	// exact. Relaxed counters are fire-and-forget: FetchAdd panics.
	Relaxed
)

func (o Ordering) String() string {
	switch o {
	case Sequential:
		return "sequential"
	case Relaxed:
		return "relaxed"
	default:
		return fmt.Sprintf("Ordering(%d)", int(o))
	}
}

// ParseOrdering accepts "sequential" (or "seq") and "relaxed".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "seq", "seqcst":
		return Sequential, nil
	case "relaxed":
		return Relaxed, nil
	default:
		return 0, fmt.Errorf("counter: unknown ordering %q: %w", s, apperr.ErrInvalidConfig)
	}
}

// ErrFetchRelaxed is the panic value raised by FetchAdd on a Relaxed counter.
var ErrFetchRelaxed = apperr.New("counter: FetchAdd needs a sequential counter", "unsupported")

// Counter is safe for concurrent use. Create it with New; the zero value is
// a usable Sequential counter.
type Counter struct {
	ordering Ordering
	seq      atomic.Int64
	relaxed  *xsync.Counter
}

// New returns a counter starting at zero.
func New(o Ordering) *Counter {
	c := &Counter{ordering: o}
	if o == Relaxed {
		c.relaxed = xsync.NewCounter()
	}
	return c
}

// Ordering returns the mode the counter was created with.
func (c *Counter) Ordering() Ordering { return c.ordering }

// Add adds delta.
func (c *Counter) Add(delta int64) {
	if c.relaxed != nil {
		c.relaxed.Add(delta)
		return
	}
	c.seq.Add(delta)
}

// Inc adds one.
func (c *Counter) Inc() { c.Add(1) }

// Dec subtracts one.
func (c *Counter) Dec() { c.Add(-1) }

// FetchAdd atomically adds delta and returns the value before the addition.
// A striped counter has no single word to read-modify-write, so FetchAdd on
// a Relaxed counter panics with ErrFetchRelaxed and leaves it unchanged.
func (c *Counter) FetchAdd(delta int64) int64 {
	if c.relaxed != nil {
		panic(ErrFetchRelaxed)
	}
	return c.seq.Add(delta) - delta
}

// Load returns the current value.
func (c *Counter) Load() int64 {
	if c.relaxed != nil {
		return c.relaxed.Value()
	}
	return c.seq.Load()
}

// Reset sets the counter back to zero. It must not race with writers.
func (c *Counter) Reset() {
	if c.relaxed != nil {
		c.relaxed.Reset()
		return
	}
	c.seq.Store(0)
}
