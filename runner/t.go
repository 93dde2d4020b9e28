package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/kballard/go-shellquote"

	"github.com/ethereum-optimism/infra/op-shunit/capture"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// Exit statuses recorded for failures that have no command behind them
const (
	StatusCheckFailed = 1
	StatusPanic       = 2
)

// TestFunc is the body of a registered test, or a setup/teardown hook
type TestFunc func(t *T)

// Test is a registered test ready to execute
type Test struct {
	Metadata types.TestMetadata
	Func     TestFunc
}

// skipSignal is raised by Skip to end the test body early
type skipSignal struct{}

// T is the execution context of a single test. A new T is created for every
// test and passed to the setup hook, the test body and the teardown hook.
type T struct {
	ctx      context.Context
	meta     types.TestMetadata
	log      log.Logger
	capture  *capture.Runner
	sources  *SourceCache
	forceRun bool

	mu          sync.Mutex
	description string
	described   bool
	skipFired   bool
	skipNote    string
	failures    []types.Failure
	last        capture.Result
	output      bytes.Buffer
	helpers     map[string]struct{}
}

func newT(ctx context.Context, meta types.TestMetadata, cfg ExecutorConfig) *T {
	description := meta.Description
	if description == "" {
		description = meta.Name
	}
	return &T{
		ctx:         ctx,
		meta:        meta,
		log:         cfg.Log.New("test", meta.Name),
		capture:     cfg.Capture,
		sources:     cfg.Sources,
		forceRun:    cfg.ForceRun,
		description: description,
		last:        capture.Result{Lines: []string{}},
		helpers:     make(map[string]struct{}),
	}
}

// Name returns the registered name of the test
func (t *T) Name() string {
	return t.meta.Name
}

// Context returns the context of the run
func (t *T) Context() context.Context {
	return t.ctx
}

// Log returns the structured logger of the test
func (t *T) Log() log.Logger {
	return t.log
}

// Describe sets the description of the running test. Only the first call
// counts. The parts are joined with spaces; no parts or only blanks fall
// back to the test name.
func (t *T) Describe(parts ...string) {
	description := strings.TrimSpace(strings.Join(parts, " "))
	if description == "" {
		description = t.meta.Name
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.described {
		return
	}
	t.described = true
	t.description = description
}

// Description returns the description currently in effect
func (t *T) Description() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.description
}

// Skip marks the test as skipped and ends it immediately. When force-run is
// configured the note is recorded and the test carries on. Skip must be
// called from the goroutine running the test.
func (t *T) Skip(note ...string) {
	t.mu.Lock()
	t.skipFired = true
	t.skipNote = strings.TrimSpace(strings.Join(note, " "))
	force := t.forceRun
	t.mu.Unlock()

	if force {
		t.log.Debug("Skip overridden by force-run", "note", t.skipNote)
		return
	}
	panic(skipSignal{})
}

// ForceRun reports whether skip signals are recorded without ending the test
func (t *T) ForceRun() bool {
	return t.forceRun
}

// Skipped reports whether the test counts as skipped
func (t *T) Skipped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipFired && !t.forceRun
}

// Run executes a command and captures its merged output and exit status.
// A failing command is not a test failure; inspect the result instead.
func (t *T) Run(name string, args ...string) capture.Result {
	res := t.capture.Run(t.ctx, name, args...)
	t.log.Debug("Captured command", "cmd", commandLine(name, args), "status", res.Status)

	t.mu.Lock()
	t.last = res
	t.mu.Unlock()
	return res
}

// Status returns the exit status of the last captured command
func (t *T) Status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last.Status
}

// Output returns the merged output of the last captured command
func (t *T) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last.Output
}

// Lines returns the output lines of the last captured command
func (t *T) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.last.Lines...)
}

// Exec executes a command as a test statement. Its output goes to the test
// log and a nonzero exit status is recorded as a failure at the caller.
func (t *T) Exec(name string, args ...string) bool {
	loc := t.caller()
	res := t.capture.Run(t.ctx, name, args...)
	if res.Output != "" {
		t.write(res.Output + "\n")
	}
	if res.Status != 0 {
		t.log.Debug("Command failed", "cmd", commandLine(name, args), "status", res.Status, "at", loc)
		t.FailAt(loc, res.Status)
		return false
	}
	return true
}

// Check records a failure at the caller when ok is false
func (t *T) Check(ok bool) bool {
	if !ok {
		t.FailAt(t.caller(), StatusCheckFailed)
	}
	return ok
}

// Checkf is Check with a message written to the test log on failure
func (t *T) Checkf(ok bool, format string, args ...any) bool {
	if !ok {
		t.Logf(format, args...)
		t.FailAt(t.caller(), StatusCheckFailed)
	}
	return ok
}

// Fail records a failure with the given status at the caller. A zero
// status is recorded as 1.
func (t *T) Fail(status int) {
	if status == 0 {
		status = StatusCheckFailed
	}
	t.FailAt(t.caller(), status)
}

// FailAt records a failure at an explicit source location
func (t *T) FailAt(loc types.SourceLocation, status int) {
	statement := ""
	if t.sources != nil {
		statement = t.sources.Statement(loc.File, loc.Line)
	}

	t.mu.Lock()
	t.failures = append(t.failures, types.Failure{
		Location:  loc,
		Status:    status,
		Statement: statement,
	})
	t.mu.Unlock()
}

// Failed reports whether any failure was recorded
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures) > 0
}

// Failures returns the failures recorded so far, in order
func (t *T) Failures() []types.Failure {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Failure(nil), t.failures...)
}

// Helper marks the calling function as a helper. Failures recorded inside a
// helper are attributed to the helper's caller.
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	name := runtime.FuncForPC(pc).Name()
	t.mu.Lock()
	t.helpers[name] = struct{}{}
	t.mu.Unlock()
}

// Logf appends a line to the test output
func (t *T) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	t.write(msg)
}

// Writer returns a writer appending to the test output
func (t *T) Writer() io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		t.write(string(p))
		return len(p), nil
	})
}

func (t *T) write(s string) {
	t.mu.Lock()
	t.output.WriteString(s)
	t.mu.Unlock()
}

func (t *T) caller() types.SourceLocation {
	t.mu.Lock()
	helpers := make(map[string]struct{}, len(t.helpers))
	for k := range t.helpers {
		helpers[k] = struct{}{}
	}
	t.mu.Unlock()

	return Caller(0, func(function string) bool {
		_, ok := helpers[function]
		return ok
	})
}

// protect runs fn, turning a skip signal into an early return and any other
// panic into a failure at the panic site
func (t *T) protect(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(skipSignal); ok {
			return
		}
		loc := panicLocation()
		t.log.Debug("Test panicked", "panic", r, "at", loc)
		t.Logf("panic: %v", r)
		t.FailAt(loc, StatusPanic)
	}()
	fn()
}

func (t *T) result() *types.TestResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	skipped := t.skipFired && !t.forceRun
	return &types.TestResult{
		Metadata:    t.meta,
		Description: t.description,
		Status:      types.Categorize(skipped, len(t.failures) > 0),
		Failures:    append([]types.Failure(nil), t.failures...),
		SkipNote:    t.skipNote,
		Output:      t.output.String(),
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

func commandLine(name string, args []string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}
