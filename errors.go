package shunit

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-shunit/exitcodes"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// FatalError aborts a run before any test executes: bad selectors,
// disallowed duplicate definitions and invalid configuration
type FatalError struct {
	Location types.SourceLocation // Entry point of the run
	Err      error
}

func (e *FatalError) Error() string {
	if e.Location.IsZero() {
		return e.Err.Error()
	}
	if e.Location.Func == "" {
		return fmt.Sprintf("%s: %v", e.Location, e.Err)
	}
	if e.Location.File == "" {
		return fmt.Sprintf("%s: %v", e.Location.Func, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Location, e.Location.Func, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError creates a new FatalError
func NewFatalError(loc types.SourceLocation, err error) *FatalError {
	return &FatalError{Location: loc, Err: err}
}

// IsFatalError checks if the error is or wraps a FatalError
func IsFatalError(err error) bool {
	var fatalErr *FatalError
	return err != nil && errors.As(err, &fatalErr)
}

// UsageError reports an option the command line does not support
type UsageError struct {
	Program string
	Option  string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: unsupported option: %s", e.Program, e.Option)
}

// IsUsageError checks if the error is or wraps a UsageError
func IsUsageError(err error) bool {
	var usageErr *UsageError
	return err != nil && errors.As(err, &usageErr)
}

// RuntimeError represents an error of the engine itself that should lead to
// exit code 2, eg. an unwritable report file
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError is returned when one or more tests failed (exit code 1)
type TestFailureError struct {
	Failed int
	Total  int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d of %d %s failed", e.Failed, e.Total, Pluralize("test", e.Total))
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(failed, total int) *TestFailureError {
	return &TestFailureError{Failed: failed, Total: total}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps the error returned by a run to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsRuntimeError(err):
		return exitcodes.RuntimeErr
	case IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.FatalErr
	}
}
