// Package raceerr classifies the error taxonomy from spec.md section 7:
// programming errors (fatal, protocol breakage) versus everything else,
// which callers handle inline as booleans. Wrapping uses pkg/errors, the
// same dependency the teacher carries for its own error paths.
package raceerr

import "github.com/pkg/errors"

// Programming is a violated precondition: double release, admit without a
// prior permit, service-complete without a service-request, a nil input
// where one is required. It is always fatal to the worker that triggers it.
type Programming struct {
	cause error
}

func (p *Programming) Error() string { return p.cause.Error() }
func (p *Programming) Unwrap() error { return p.cause }

// NewProgrammingf builds a Programming error, annotated with a stack by
// pkg/errors, from a format string.
func NewProgrammingf(format string, args ...any) error {
	return &Programming{cause: errors.Errorf(format, args...)}
}

// WrapProgramming wraps an existing error as a Programming error.
func WrapProgramming(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Programming{cause: errors.Wrap(err, msg)}
}

// IsProgramming reports whether err (or something it wraps) is a
// Programming error.
func IsProgramming(err error) bool {
	var p *Programming
	return errors.As(err, &p)
}
