// Package apperr classifies the errors produced by the coordination
// primitives into a small set of stable kinds.
package apperr

import (
	"context"
	"errors"
)

// ErrInvalidConfig is wrapped by every constructor that rejects its
// configuration (zero participants, negative capacity, ...).
var ErrInvalidConfig = errors.New("invalid configuration")

// Kinder is satisfied by domain errors that carry a classification kind.
type Kinder interface {
	Kind() string
}

// Kind returns the classification of err. Errors implementing Kinder win
// over the generic context and configuration kinds.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return "config"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// IsContext reports whether err is a cancellation or deadline error.
func IsContext(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// kindError is a sentinel error with a fixed kind.
type kindError struct {
	msg  string
	kind string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() string  { return e.kind }

// New returns a sentinel error whose Kind is kind.
func New(msg, kind string) error {
	return &kindError{msg: msg, kind: kind}
}
