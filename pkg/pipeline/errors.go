package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrBusy is matched by every BusyError.
	ErrBusy = errors.New("pipeline busy")
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
)

// BusyError is returned by Run when another run is in flight.
type BusyError struct {
	// RunID of the run holding the flight, empty if it was not yet visible.
	RunID string
}

// Error implements the error interface.
func (e *BusyError) Error() string {
	if e.RunID == "" {
		return ErrBusy.Error()
	}
	return fmt.Sprintf("%s: run %s in flight", ErrBusy, e.RunID)
}

// Is reports whether target is ErrBusy.
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// StageError wraps the first failure of a run with the stage it came from.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage err failed in, or "" if err carries none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
