package pool

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/coordination-core/internal/apperr"
	"github.com/iliamunaev/coordination-core/internal/counter"
)

// Sentinel errors returned by the pool.
var (
	ErrPoolClosed      = apperr.New("pool: closed", "closed")
	ErrNotIdle         = apperr.New("pool: already started", "state")
	ErrShutdownTimeout = apperr.New("pool: shutdown timeout elapsed; tasks were cancelled", "timeout")
)

// State is the lifecycle phase of a Pool.
type State int

const (
	Idle State = iota
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Task is a named unit of work. Run receives the pool's task context.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Spawner starts goroutines and joins them. *errgroup.Group satisfies it.
type Spawner interface {
	Go(f func() error)
	Wait() error
}

// Config holds pool construction parameters.
type Config struct {
	// Spawner runs tasks. If nil, an errgroup.Group is used.
	Spawner Spawner

	// Reporter receives every Result. If nil, LogReporter(Logger) is used.
	Reporter Reporter

	// Logger is used for lifecycle output. If nil, slog.Default() is used.
	Logger *slog.Logger

	// MaxConcurrent bounds the default spawner. Zero means unbounded. It is
	// ignored when Spawner is set. While the bound is reached Submit blocks,
	// so tasks must not Submit into a bounded pool.
	MaxConcurrent int
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.Reporter == nil {
		out.Reporter = LogReporter(out.Logger)
	}
	if out.Spawner == nil {
		g := &errgroup.Group{}
		if out.MaxConcurrent > 0 {
			g.SetLimit(out.MaxConcurrent)
		}
		out.Spawner = g
	}
	return out
}

// Pool runs tasks concurrently and collects their results.
type Pool struct {
	cfg     Config
	runID   uuid.UUID
	running *counter.Counter

	mu      sync.Mutex
	state   State
	queued  []Task
	next    int
	cancel  context.CancelFunc
	taskCtx context.Context
	// spawning tracks Spawner.Go calls in flight so that Wait never races
	// with Go.
	spawning sync.WaitGroup

	resMu   sync.Mutex
	results []Result

	once        sync.Once
	report      Report
	shutdownErr error
}

// New creates an idle Pool with tasks queued for Start.
func New(cfg Config, tasks ...Task) *Pool {
	return &Pool{
		cfg:     cfg.withDefaults(),
		runID:   uuid.New(),
		running: counter.New(counter.Sequential),
		queued:  slices.Clone(tasks),
	}
}

// RunID identifies this pool's run in logs and reports.
func (p *Pool) RunID() uuid.UUID {
	return p.runID
}

// State returns the current lifecycle phase.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int64 {
	return p.running.Load()
}

// Start moves the pool to Running and spawns every queued task. Task
// contexts derive from ctx. The queued tasks are reserved before the pool
// becomes visible as Running, so a concurrent Shutdown waits for all of
// them.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return ErrNotIdle
	}
	p.taskCtx, p.cancel = context.WithCancel(ctx)
	p.state = Running
	queued := p.queued
	p.queued = nil
	first := p.reserve(len(queued))
	p.mu.Unlock()

	p.cfg.Logger.Info("pool starting", "run_id", p.runID.String(), "tasks", len(queued))

	for i, t := range queued {
		p.spawn(first+i, t)
	}
	return nil
}

// Submit adds a task. While Idle the task is queued for Start; while
// Running it is spawned at once. After Shutdown has begun it returns
// ErrPoolClosed.
func (p *Pool) Submit(t Task) error {
	p.mu.Lock()
	switch p.state {
	case Idle:
		p.queued = append(p.queued, t)
		p.mu.Unlock()
		return nil
	case Running:
	default:
		p.mu.Unlock()
		return ErrPoolClosed
	}
	idx := p.reserve(1)
	p.mu.Unlock()

	p.spawn(idx, t)
	return nil
}

// reserve claims n spawn indexes and returns the first. Must be called with
// p.mu held while Running.
func (p *Pool) reserve(n int) int {
	first := p.next
	p.next += n
	p.spawning.Add(n)
	return first
}

// spawn hands a reserved task to the spawner.
func (p *Pool) spawn(idx int, t Task) {
	defer p.spawning.Done()
	p.cfg.Spawner.Go(p.record(p.taskCtx, idx, t))
}

// record wraps t so that its outcome is captured, reported and counted.
func (p *Pool) record(ctx context.Context, idx int, t Task) func() error {
	return func() (err error) {
		res := Result{ID: uuid.New(), Index: idx, Name: t.Name}

		p.running.Inc()
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = newPanicError(r)
			}
			p.running.Dec()

			res.Duration = time.Since(start)
			res.Err = err
			res.Status = statusOf(err)
			res.Detail = apperr.Kind(err)

			p.resMu.Lock()
			p.results = append(p.results, res)
			p.resMu.Unlock()

			p.cfg.Reporter.Report(res)
		}()

		return t.Run(ctx)
	}
}

func statusOf(err error) Status {
	var pe *PanicError
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &pe):
		return StatusPanicked
	case apperr.IsContext(err):
		return StatusCanceled
	default:
		return StatusError
	}
}

// Shutdown stops accepting tasks and waits for every spawned task to end.
// If ctx ends first, the task context is cancelled, Shutdown still waits
// for the tasks to return, and ErrShutdownTimeout is returned along with
// the report.
//
// Shutdown is safe to call more than once; later calls return the first
// call's report and error.
func (p *Pool) Shutdown(ctx context.Context) (Report, error) {
	p.once.Do(func() {
		p.report, p.shutdownErr = p.shutdown(ctx)
	})
	return p.report, p.shutdownErr
}

func (p *Pool) shutdown(ctx context.Context) (Report, error) {
	p.mu.Lock()
	prev := p.state
	if prev == Idle {
		p.state = Terminated
		p.queued = nil
		p.mu.Unlock()
		p.cfg.Logger.Info("pool shutdown before start", "run_id", p.runID.String())
		return Report{RunID: p.runID}, nil
	}
	p.state = Draining
	p.mu.Unlock()

	p.cfg.Logger.Info("pool shutdown initiated", "run_id", p.runID.String())

	done := make(chan struct{})
	go func() {
		p.spawning.Wait()
		_ = p.cfg.Spawner.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		p.cfg.Logger.Info("pool shutdown complete", "run_id", p.runID.String())
	case <-ctx.Done():
		p.cfg.Logger.Warn("pool shutdown deadline reached, cancelling tasks",
			"run_id", p.runID.String(), "running", p.running.Load())
		p.cancel()
		<-done
		p.cfg.Logger.Info("pool shutdown complete (forced)", "run_id", p.runID.String())
		err = ErrShutdownTimeout
	}
	p.cancel()

	p.mu.Lock()
	p.state = Terminated
	p.mu.Unlock()

	p.resMu.Lock()
	results := slices.Clone(p.results)
	p.resMu.Unlock()
	slices.SortFunc(results, func(a, b Result) int { return a.Index - b.Index })

	return Report{RunID: p.runID, Results: results}, err
}
