package store

import (
	"errors"
	"fmt"
)

// ErrNoReadings reports that the store holds no readings yet. Latest
// returns it instead of inventing a zero reading; callers branch on it
// with errors.Is.
var ErrNoReadings = errors.New("store: no readings")

// UnavailableError reports that the backing store could not be opened or
// created. Fatal at process startup; inside a running loop it is treated
// like any other per-cycle failure.
type UnavailableError struct {
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable at %q: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// WriteError reports that a single append failed. The producer logs it
// and keeps streaming; it never terminates the loop.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store write (%s): %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports that a single query failed. The refresh scheduler
// surfaces it as a "data unavailable" snapshot and keeps polling.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("store read (%s): %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err wraps an UnavailableError. Used at
// startup to pick the command-error exit path.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
