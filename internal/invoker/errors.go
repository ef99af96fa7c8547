package invoker

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrInvalidArguments matches every *ArgumentError via errors.Is.
var ErrInvalidArguments = errors.New("invalid arguments")

// Kind classifies the outcome of an invocation.
type Kind string

const (
	OK               Kind = "ok"
	InvalidArguments Kind = "invalid_arguments"
	Spawn            Kind = "spawn_error"
	NonZeroExit      Kind = "nonzero_exit"
	Canceled         Kind = "canceled"
	// Unknown covers I/O failures on the child's pipes.
	Unknown Kind = "unknown"
)

// ArgumentError is returned synchronously, before any process exists.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string { return e.Reason }

// Is reports whether target is ErrInvalidArguments.
func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArguments }

// SpawnError is returned when the OS could not create the child process,
// e.g. the binary is missing or not executable. No output is attached.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError is returned when the child ran but did not exit cleanly.
// Output holds everything the child wrote to stdout and stderr.
type ExitError struct {
	Binary string
	Code   int
	Output []byte

	// Cause is the context error when the child was killed because the
	// caller's context ended. Nil for an ordinary non-zero exit.
	Cause error
}

// Error names the executable by its base name, so the message reads the
// same whether it was found on PATH or through OPENSSL_PATH.
func (e *ExitError) Error() string {
	name := filepath.Base(e.Binary)
	if e.Cause != nil {
		return fmt.Sprintf("%s interrupted: %v.\n%s", name, e.Cause, e.Output)
	}
	return fmt.Sprintf("%s exited with code %d.\n%s", name, e.Code, e.Output)
}

func (e *ExitError) Unwrap() error { return e.Cause }

// KindOf maps an invocation error onto its Kind. A nil error is OK.
func KindOf(err error) Kind {
	if err == nil {
		return OK
	}
	if errors.Is(err, ErrInvalidArguments) {
		return InvalidArguments
	}
	var spawnErr *SpawnError
	if errors.As(err, &spawnErr) {
		return Spawn
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Cause != nil {
			return Canceled
		}
		return NonZeroExit
	}
	return Unknown
}

// ExitCode returns the child's exit code carried by err, 0 for a nil error
// and -1 when the error carries none.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// Output returns the partial output carried by err, if any.
func Output(err error) []byte {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Output
	}
	return nil
}
