// Package shared provides delay, sleep and probe helpers used by the
// playground workers.
package shared

import (
	"context"
	"sync/atomic"
	"time"
)

// DelayFor returns the override delay for section when provided, otherwise
// defaultDelay.
func DelayFor(delays map[string]time.Duration, section string, defaultDelay time.Duration) time.Duration {
	if delays == nil {
		return defaultDelay
	}
	if d, ok := delays[section]; ok && d > 0 {
		return d
	}
	return defaultDelay
}

// Hold keeps the caller inside a section for d. It returns the context's
// cause as soon as ctx ends, also when ctx has already ended and d is zero.
func Hold(ctx context.Context, d time.Duration) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Occupancy tracks how many goroutines are inside a section and the highest
// number seen at once.
type Occupancy struct {
	cur  atomic.Int64
	peak atomic.Int64
}

// Enter records one more occupant and returns the new count.
func (o *Occupancy) Enter() int64 {
	cur := o.cur.Add(1)
	for {
		prev := o.peak.Load()
		if cur <= prev || o.peak.CompareAndSwap(prev, cur) {
			return cur
		}
	}
}

// Leave records one occupant leaving.
func (o *Occupancy) Leave() {
	o.cur.Add(-1)
}

// Peak returns the highest occupancy seen.
func (o *Occupancy) Peak() int64 {
	return o.peak.Load()
}
