package pool

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Status is the terminal outcome of a task.
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
	StatusPanicked Status = "panicked"
)

// Result is the record of one task run.
type Result struct {
	ID       uuid.UUID
	Index    int
	Name     string
	Status   Status
	Duration time.Duration
	// Detail is the apperr kind of Err, empty on success.
	Detail string
	Err    error
}

// Report is the outcome of a whole run, in spawn order.
type Report struct {
	RunID   uuid.UUID
	Results []Result
}

// Failed returns the results whose status is not ok.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status != StatusOK {
			out = append(out, res)
		}
	}
	return out
}

// Err aggregates the errors of every failed task, or returns nil.
func (r Report) Err() error {
	var merr *multierror.Error
	for _, res := range r.Failed() {
		merr = multierror.Append(merr, fmt.Errorf("task %d (%s): %w", res.Index, res.Name, res.Err))
	}
	return merr.ErrorOrNil()
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string { return fmt.Sprintf("task panicked: %v", e.Value) }
func (e *PanicError) Kind() string  { return "panic" }

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
