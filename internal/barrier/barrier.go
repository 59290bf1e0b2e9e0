// Package barrier provides a reusable k-party rendezvous point.
package barrier

import (
	"context"
	"fmt"

	"github.com/iliamunaev/coordination-core/internal/apperr"
	"github.com/iliamunaev/coordination-core/internal/syncs"
)

// Barrier blocks callers of Wait until k of them have arrived, then releases
// all of them together and starts a new generation.
type Barrier struct {
	parties int

	mu         syncs.Mutex
	arrived    int
	generation uint64
	release    chan struct{}
}

// New returns a barrier for k parties.
func New(k int) (*Barrier, error) {
	if k < 1 {
		return nil, fmt.Errorf("barrier: parties %d must be >= 1: %w", k, apperr.ErrInvalidConfig)
	}
	return &Barrier{parties: k, release: make(chan struct{})}, nil
}

// Wait blocks until every party of the current generation has arrived or
// ctx is done. Exactly one caller per generation, the last to arrive,
// gets leader == true.
//
// A caller whose ctx ends first is withdrawn and gets ctx.Err(). If the
// generation is released at the same moment, the release wins and Wait
// returns nil.
func (b *Barrier) Wait(ctx context.Context) (leader bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		close(b.release)
		b.release = make(chan struct{})
		b.mu.Unlock()
		return true, nil
	}
	gen := b.generation
	release := b.release
	b.mu.Unlock()

	select {
	case <-release:
		return false, nil
	case <-ctx.Done():
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.generation != gen {
		return false, nil
	}
	b.arrived--
	return false, ctx.Err()
}

// Parties returns k.
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting returns how many parties have arrived in the current generation.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.arrived
}

// Generation returns the number of completed generations.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.generation
}
