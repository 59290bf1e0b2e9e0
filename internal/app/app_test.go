package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/coordination-core/internal/apperr"
	"github.com/iliamunaev/coordination-core/internal/counter"
	"github.com/iliamunaev/coordination-core/internal/pool"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "defaults",
			cfg:  DefaultConfig(),
		},
		{
			name: "no_increments_no_handoffs",
			cfg:  Config{Workers: 3, Phases: 2},
		},
		{
			name: "relaxed",
			cfg: Config{
				Workers:    8,
				Increments: 500,
				Step:       3,
				Phases:     4,
				Ordering:   counter.Relaxed,
				Permits:    3,
				Handoffs:   50,
			},
		},
		{
			name: "single_worker_single_permit",
			cfg: Config{
				Workers:    1,
				Increments: 10,
				Phases:     2,
				Permits:    1,
				Handoffs:   1,
				Hold:       time.Millisecond,
			},
		},
		{
			name: "contended_sections",
			cfg: Config{
				Workers:    6,
				Increments: 100,
				Phases:     3,
				Permits:    2,
				Hold:       100 * time.Microsecond,
				Delays:     map[string]time.Duration{SectionPermit: 2 * time.Millisecond},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Run(context.Background(), tt.cfg, quietLogger())
			require.NoError(t, err)

			cfg := tt.cfg.withDefaults()
			want := int64(cfg.Workers) * int64(cfg.Phases) * int64(cfg.Increments) * cfg.Step
			assert.Equal(t, want, s.Counter)
			assert.Equal(t, want, s.MutexTotal)
			assert.Equal(t, int64(1), s.MutexPeak)
			assert.LessOrEqual(t, s.PermitPeak, int64(cfg.Permits))
			assert.GreaterOrEqual(t, s.PermitPeak, int64(1))
			assert.Equal(t, cfg.Workers*cfg.Phases, s.Events)
			assert.Equal(t, cfg.Handoffs, s.Handoffs)
			assert.Equal(t, uint64(cfg.Phases), s.Generations)
			assert.Equal(t, cfg.Ordering.String(), s.Ordering)

			require.Len(t, s.Report.Results, cfg.Workers+3)
			for _, r := range s.Report.Results {
				assert.Equal(t, pool.StatusOK, r.Status, "task %s", r.Name)
			}
		})
	}
}

func TestRunInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), Config{Workers: -1, Permits: -2, Hold: -time.Second}, quietLogger())
	require.ErrorIs(t, err, apperr.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "workers -1")
	assert.Contains(t, err.Error(), "permits -2")
	assert.Contains(t, err.Error(), "hold -1s")
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := Run(context.Background(), Config{
		Workers: 2,
		Phases:  1,
		Hold:    time.Minute,
		Timeout: 50 * time.Millisecond,
	}, quietLogger())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunParentCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Config{Workers: 2}, quietLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := (&Config{Workers: 7}).withDefaults()
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, 0, cfg.Increments, "zero increments is a valid run")
	assert.Equal(t, int64(1), cfg.Step)
	assert.Equal(t, 3, cfg.Phases)
	assert.Equal(t, 2, cfg.Permits)
	assert.Equal(t, 0, cfg.Handoffs, "zero handoffs is a valid run")
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())

	def := DefaultConfig()
	assert.Equal(t, 4, def.Workers)
	assert.Equal(t, 1000, def.Increments)
	assert.Equal(t, 10, def.Handoffs)
	assert.NoError(t, def.Validate())
}

func TestConfigValidateNegativeCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "increments", cfg: Config{Increments: -1}, want: "increments -1 must be >= 0"},
		{name: "handoffs", cfg: Config{Handoffs: -5}, want: "handoffs -5 must be >= 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Run(context.Background(), tt.cfg, quietLogger())
			require.ErrorIs(t, err, apperr.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSummaryCheck(t *testing.T) {
	t.Parallel()

	ok := Summary{
		Counter:          40,
		ExpectedCounter:  40,
		MutexTotal:       40,
		MutexPeak:        1,
		PermitPeak:       2,
		Permits:          2,
		Events:           4,
		ExpectedEvents:   4,
		Handoffs:         5,
		ExpectedHandoffs: 5,
		HandoffSum:       10,
	}
	require.NoError(t, ok.Check())

	tests := []struct {
		name   string
		mutate func(*Summary)
		want   string
	}{
		{name: "lost_increment", mutate: func(s *Summary) { s.Counter = 39 }, want: "counter: got 39, want 40"},
		{name: "mutex_overlap", mutate: func(s *Summary) { s.MutexPeak = 2 }, want: "mutex: 2 holders"},
		{name: "permit_overflow", mutate: func(s *Summary) { s.PermitPeak = 3 }, want: "semaphore: 3 holders"},
		{name: "lost_event", mutate: func(s *Summary) { s.Events = 3 }, want: "events: got 3"},
		{name: "lost_handoff", mutate: func(s *Summary) { s.Handoffs = 4; s.HandoffSum = 6 }, want: "handoffs: got 4"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := ok
			tt.mutate(&s)
			err := s.Check()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func ExampleRun() {
	s, err := Run(context.Background(), Config{Workers: 2, Increments: 5, Phases: 2, Handoffs: 3}, quietLogger())
	if err != nil {
		panic(err)
	}
	fmt.Println(s.Counter, s.Events, s.Handoffs, s.MutexPeak)
	// Output: 20 4 3 1
}
