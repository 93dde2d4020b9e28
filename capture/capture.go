// Package capture runs commands and records their merged output and exit
// status without ever reporting the command's failure as an error.
package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Exit statuses used when the command could not produce its own
const (
	StatusNotExecutable = 126
	StatusNotFound      = 127
	StatusSignalBase    = 128
)

// Result is the outcome of a captured command
type Result struct {
	Status int
	Output string   // stdout and stderr merged, trailing newline stripped
	Lines  []string // Output split into lines
}

// Success reports whether the command exited with status 0
func (r Result) Success() bool {
	return r.Status == 0
}

// Runner executes captured commands
type Runner struct {
	Dir string   // Working directory, current directory when empty
	Env []string // Environment, inherited when nil
}

// Run executes name with args using a zero Runner
func Run(ctx context.Context, name string, args ...string) Result {
	var r Runner
	return r.Run(ctx, name, args...)
}

// Run executes name with args and captures its output and exit status.
// Running without a command name is a no-op that succeeds.
func (r *Runner) Run(ctx context.Context, name string, args ...string) Result {
	if name == "" {
		return Result{Lines: []string{}}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env

	// Sharing one writer keeps each stream's own order intact
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := strings.TrimSuffix(buf.String(), "\n")
	return Result{
		Status: ExitStatus(err),
		Output: output,
		Lines:  SplitLines(output),
	}
}

// SplitLines splits output into lines. Empty output has no lines.
func SplitLines(output string) []string {
	if output == "" {
		return []string{}
	}
	return strings.Split(output, "\n")
}

// ExitStatus converts the error returned by running a command into the
// exit status a shell would report for it
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return StatusSignalBase + int(ws.Signal())
		}
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		return StatusSignalBase
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return StatusNotFound
	}
	return StatusNotExecutable
}
