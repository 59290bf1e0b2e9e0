package app

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/iliamunaev/coordination-core/internal/pool"
)

// Summary is what a run observed.
type Summary struct {
	Ordering         string
	Counter          int64
	ExpectedCounter  int64
	MutexTotal       int64
	MutexPeak        int64
	PermitPeak       int64
	Permits          int
	Events           int
	ExpectedEvents   int
	Handoffs         int
	ExpectedHandoffs int
	HandoffSum       int
	Generations      uint64
	Report           pool.Report
}

// Check returns every coordination property the run violated.
func (s Summary) Check() error {
	var merr *multierror.Error
	fail := func(format string, args ...any) {
		merr = multierror.Append(merr, fmt.Errorf(format, args...))
	}

	if s.Counter != s.ExpectedCounter {
		fail("counter: got %d, want %d", s.Counter, s.ExpectedCounter)
	}
	if s.MutexTotal != s.ExpectedCounter {
		fail("mutex total: got %d, want %d", s.MutexTotal, s.ExpectedCounter)
	}
	if s.MutexPeak > 1 {
		fail("mutex: %d holders at once", s.MutexPeak)
	}
	if s.PermitPeak > int64(s.Permits) {
		fail("semaphore: %d holders with %d permits", s.PermitPeak, s.Permits)
	}
	if s.Events != s.ExpectedEvents {
		fail("events: got %d, want %d", s.Events, s.ExpectedEvents)
	}
	if s.Handoffs != s.ExpectedHandoffs {
		fail("handoffs: got %d, want %d", s.Handoffs, s.ExpectedHandoffs)
	}
	if want := s.ExpectedHandoffs * (s.ExpectedHandoffs - 1) / 2; s.HandoffSum != want {
		fail("handoff sum: got %d, want %d", s.HandoffSum, want)
	}

	return merr.ErrorOrNil()
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.Report.RunID.String()),
		slog.String("ordering", s.Ordering),
		slog.Int64("counter", s.Counter),
		slog.Int64("expected", s.ExpectedCounter),
		slog.Int64("mutex_peak", s.MutexPeak),
		slog.Int64("permit_peak", s.PermitPeak),
		slog.Int("permits", s.Permits),
		slog.Int("events", s.Events),
		slog.Int("handoffs", s.Handoffs),
		slog.Uint64("generations", s.Generations),
		slog.Int("failed_tasks", len(s.Report.Failed())),
	)
}
