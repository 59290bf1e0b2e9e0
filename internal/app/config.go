package app

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/iliamunaev/coordination-core/internal/apperr"
	"github.com/iliamunaev/coordination-core/internal/counter"
)

// Sections whose hold time can be overridden through Config.Delays.
const (
	SectionMutex  = "mutex"
	SectionPermit = "permit"
)

// Config sizes one playground run. Zero Workers, Step, Phases, Permits and
// Timeout take defaults; zero Increments and Handoffs mean none.
// DefaultConfig returns a fully populated Config.
type Config struct {
	// Workers is the number of worker tasks and barrier parties.
	Workers int
	// Increments is how many counter increments each worker does per phase.
	Increments int
	// Step is the amount added per increment.
	Step int64
	// Phases is the number of barrier-separated rounds.
	Phases int
	// Ordering selects the counter implementation.
	Ordering counter.Ordering
	// Permits is the semaphore capacity.
	Permits int
	// Handoffs is the number of values passed through the rendezvous channel.
	Handoffs int
	// Hold is how long a worker stays inside each guarded section.
	Hold time.Duration
	// Delays overrides Hold per section.
	Delays map[string]time.Duration
	// Timeout bounds the whole run.
	Timeout time.Duration
}

// DefaultConfig returns the configuration the playground runs with when no
// flags are given.
func DefaultConfig() Config {
	c := Config{Increments: 1000, Handoffs: 10}
	return c.withDefaults()
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Workers == 0 {
		out.Workers = 4
	}
	if out.Step == 0 {
		out.Step = 1
	}
	if out.Phases == 0 {
		out.Phases = 3
	}
	if out.Permits == 0 {
		out.Permits = 2
	}
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	return out
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var merr *multierror.Error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf(format+": %w", append(args, apperr.ErrInvalidConfig)...))
		}
	}

	check(c.Workers >= 1, "workers %d must be >= 1", c.Workers)
	check(c.Increments >= 0, "increments %d must be >= 0", c.Increments)
	check(c.Step >= 1, "step %d must be >= 1", c.Step)
	check(c.Phases >= 1, "phases %d must be >= 1", c.Phases)
	check(c.Permits >= 1, "permits %d must be >= 1", c.Permits)
	check(c.Handoffs >= 0, "handoffs %d must be >= 0", c.Handoffs)
	check(c.Hold >= 0, "hold %s must be >= 0", c.Hold)
	check(c.Ordering == counter.Sequential || c.Ordering == counter.Relaxed, "unknown ordering %d", int(c.Ordering))

	return merr.ErrorOrNil()
}
