// Package app wires every coordination primitive into one concurrent run.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/iliamunaev/coordination-core/internal/barrier"
	"github.com/iliamunaev/coordination-core/internal/channel"
	"github.com/iliamunaev/coordination-core/internal/counter"
	"github.com/iliamunaev/coordination-core/internal/lock"
	"github.com/iliamunaev/coordination-core/internal/pool"
	"github.com/iliamunaev/coordination-core/internal/semaphore"
	"github.com/iliamunaev/coordination-core/internal/shared"
)

// Event is sent by a worker when it finishes the guarded part of a phase.
type Event struct {
	Worker int
	Phase  int
}

// Settings is read by every worker under a shared lock and updated by the
// barrier leader at the end of each phase.
type Settings struct {
	Step  int64
	Phase int
}

// App holds the primitives shared by one run.
type App struct {
	cfg    Config
	logger *slog.Logger

	counter  *counter.Counter
	total    *lock.Mutex[int64]
	settings *lock.RWLock[Settings]
	sem      *semaphore.Semaphore
	bar      *barrier.Barrier

	gateMu *lock.Mutex[bool]
	gate   *lock.Cond[bool]

	mutexOcc  shared.Occupancy
	permitOcc shared.Occupancy
}

// New validates cfg and builds the primitives for a run.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	sem, err := semaphore.New(cfg.Permits)
	if err != nil {
		return nil, err
	}
	bar, err := barrier.New(cfg.Workers)
	if err != nil {
		return nil, err
	}
	gateMu := lock.NewMutex(false)

	return &App{
		cfg:      cfg,
		logger:   logger,
		counter:  counter.New(cfg.Ordering),
		total:    lock.NewMutex(int64(0)),
		settings: lock.NewRWLock(Settings{Step: cfg.Step}),
		sem:      sem,
		bar:      bar,
		gateMu:   gateMu,
		gate:     lock.NewCond(gateMu),
	}, nil
}

// Run validates cfg and executes one run. See App.Run.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (Summary, error) {
	a, err := New(cfg, logger)
	if err != nil {
		return Summary{}, err
	}
	return a.Run(ctx)
}

// Run starts the workers, the event consumer and the handoff pair on a
// pool, opens the start gate and waits for everything to finish within
// the configured timeout. The returned error aggregates task failures and
// violated coordination properties.
func (a *App) Run(ctx context.Context) (Summary, error) {
	cfg := a.cfg
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	evTx, evRx := channel.New[Event]()
	hTx, hRx := channel.NewRendezvous[int]()

	var events, handoffs, handoffSum int

	p := pool.New(pool.Config{Logger: a.logger, Reporter: pool.LogReporter(a.logger)})
	for w := 0; w < cfg.Workers; w++ {
		tx := evTx.Clone()
		if err := p.Submit(pool.Task{
			Name: fmt.Sprintf("worker-%d", w),
			Run:  func(ctx context.Context) error { return a.worker(ctx, w, tx) },
		}); err != nil {
			return Summary{}, err
		}
	}
	evTx.Close()

	tasks := []pool.Task{
		{Name: "events", Run: func(ctx context.Context) error {
			defer evRx.Close()
			n, err := drain(ctx, evRx, func(Event) {})
			events = n
			return err
		}},
		{Name: "handoff-producer", Run: func(ctx context.Context) error {
			defer hTx.Close()
			for i := 0; i < cfg.Handoffs; i++ {
				if err := hTx.Send(ctx, i); err != nil {
					return fmt.Errorf("handoff %d: %w", i, err)
				}
			}
			return nil
		}},
		{Name: "handoff-consumer", Run: func(ctx context.Context) error {
			defer hRx.Close()
			n, err := drain(ctx, hRx, func(v int) { handoffSum += v })
			handoffs = n
			return err
		}},
	}
	for _, t := range tasks {
		if err := p.Submit(t); err != nil {
			return Summary{}, err
		}
	}

	if err := p.Start(ctx); err != nil {
		return Summary{}, err
	}
	openErr := a.openGate(ctx)

	report, shutdownErr := p.Shutdown(ctx)

	s := Summary{
		Ordering:         a.counter.Ordering().String(),
		Counter:          a.counter.Load(),
		ExpectedCounter:  int64(cfg.Workers) * int64(cfg.Phases) * int64(cfg.Increments) * cfg.Step,
		MutexPeak:        a.mutexOcc.Peak(),
		PermitPeak:       a.permitOcc.Peak(),
		Permits:          a.sem.Capacity(),
		Events:           events,
		ExpectedEvents:   cfg.Workers * cfg.Phases,
		Handoffs:         handoffs,
		ExpectedHandoffs: cfg.Handoffs,
		HandoffSum:       handoffSum,
		Generations:      a.bar.Generation(),
		Report:           report,
	}
	if g, ok := a.total.TryLock(); ok {
		s.MutexTotal = *g.Value()
		g.Unlock()
	}

	var merr *multierror.Error
	if openErr != nil {
		merr = multierror.Append(merr, fmt.Errorf("open gate: %w", openErr))
	}
	if shutdownErr != nil {
		merr = multierror.Append(merr, shutdownErr)
	}
	if err := report.Err(); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := s.Check(); err != nil {
		merr = multierror.Append(merr, err)
	}

	a.logger.Info("run complete", "summary", s)
	return s, merr.ErrorOrNil()
}

func (a *App) openGate(ctx context.Context) error {
	if err := a.gateMu.With(ctx, func(open *bool) error {
		*open = true
		return nil
	}); err != nil {
		return err
	}
	a.gate.NotifyAll()
	return nil
}

func (a *App) waitGate(ctx context.Context) error {
	g, err := a.gateMu.Lock(ctx)
	if err != nil {
		return err
	}
	defer g.Unlock()

	return a.gate.WaitUntil(ctx, g, func(open *bool) bool { return *open })
}

// worker runs every phase for worker id and closes tx when done.
func (a *App) worker(ctx context.Context, id int, tx *channel.Sender[Event]) error {
	defer tx.Close()

	if err := a.waitGate(ctx); err != nil {
		return fmt.Errorf("start gate: %w", err)
	}

	for phase := 0; phase < a.cfg.Phases; phase++ {
		if err := a.phase(ctx, id, phase, tx); err != nil {
			return fmt.Errorf("phase %d: %w", phase, err)
		}
	}
	return nil
}

func (a *App) phase(ctx context.Context, id, phase int, tx *channel.Sender[Event]) error {
	var step int64
	if err := a.settings.Read(ctx, func(s Settings) error {
		step = s.Step
		return nil
	}); err != nil {
		return err
	}

	for i := 0; i < a.cfg.Increments; i++ {
		a.counter.Add(step)
	}

	if err := a.total.With(ctx, func(total *int64) error {
		a.mutexOcc.Enter()
		defer a.mutexOcc.Leave()

		*total += int64(a.cfg.Increments) * step
		return shared.Hold(ctx, shared.DelayFor(a.cfg.Delays, SectionMutex, a.cfg.Hold))
	}); err != nil {
		return err
	}

	if err := a.sem.Do(ctx, func(ctx context.Context) error {
		a.permitOcc.Enter()
		defer a.permitOcc.Leave()

		return shared.Hold(ctx, shared.DelayFor(a.cfg.Delays, SectionPermit, a.cfg.Hold))
	}); err != nil {
		return err
	}

	if err := tx.Send(ctx, Event{Worker: id, Phase: phase}); err != nil {
		return err
	}

	leader, err := a.bar.Wait(ctx)
	if err != nil {
		return err
	}
	if leader {
		a.logger.Debug("phase complete", "phase", phase, "worker", id)
		return a.settings.With(ctx, func(s *Settings) error {
			s.Phase = phase + 1
			return nil
		})
	}
	return nil
}

// drain receives until the channel is closed and returns how many values
// it saw.
func drain[T any](ctx context.Context, rx *channel.Receiver[T], fn func(T)) (int, error) {
	n := 0
	for {
		v, ok, err := rx.Recv(ctx)
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		fn(v)
		n++
	}
}
