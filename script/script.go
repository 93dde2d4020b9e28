// Package script runs the test functions of shell scripts. Each test runs
// in its own shell process that sources the script behind a small prelude
// providing the test API and an ERR trap reporting failures.
package script

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-shunit/capture"
	"github.com/ethereum-optimism/infra/op-shunit/registry"
	"github.com/ethereum-optimism/infra/op-shunit/runner"
	"github.com/ethereum-optimism/infra/op-shunit/scanner"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

//go:embed prelude.bash
var prelude []byte

const (
	// EnvForceRun is set in the test process when skips must not end the test
	EnvForceRun = "SHUNIT_FORCE_RUN"
	// EnvTest holds the name of the test the process runs
	EnvTest = "SHUNIT_TEST"

	DefaultShell = "bash"
)

// Options configures how scripts are run
type Options struct {
	Shell string   // Shell binary, bash when empty
	Env   []string // Extra environment for the test processes
	Log   log.Logger
}

// Driver runs the tests of one script
type Driver struct {
	opts    Options
	script  string
	dir     string
	prelude string
}

// Load scans the script at path and registers each test function it
// defines with reg. Close the returned driver once the run is over.
func Load(reg *registry.Registry, path string, opts Options) (*Driver, error) {
	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}
	if opts.Log == nil {
		opts.Log = log.New()
		opts.Log.Error("No logger provided, using default")
	}

	defs, err := scanner.Scan(path)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "op-shunit-")
	if err != nil {
		return nil, fmt.Errorf("failed to create prelude directory: %w", err)
	}
	preludePath := filepath.Join(dir, "prelude.bash")
	if err := os.WriteFile(preludePath, prelude, 0644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write prelude: %w", err)
	}

	d := &Driver{
		opts:    opts,
		script:  path,
		dir:     dir,
		prelude: preludePath,
	}
	for _, def := range defs {
		reg.RegisterAt(def.Location, def.Name, d.testFunc(def), def.Description)
	}
	opts.Log.Debug("Loaded script", "path", path, "definitions", len(defs), "tests", reg.Len())
	return d, nil
}

// Close removes the driver's temporary files
func (d *Driver) Close() error {
	return os.RemoveAll(d.dir)
}

func (d *Driver) testFunc(def scanner.Definition) runner.TestFunc {
	return func(t *runner.T) {
		d.runTest(t, def)
	}
}

func (d *Driver) runTest(t *runner.T, def scanner.Definition) {
	events, err := os.CreateTemp(d.dir, def.Name+"-*.events")
	if err != nil {
		t.Logf("failed to create event file: %v", err)
		t.FailAt(def.Location, capture.StatusNotExecutable)
		return
	}
	defer os.Remove(events.Name())
	defer events.Close()

	// $0 is the script, as when the script runs on its own
	cmd := exec.CommandContext(t.Context(), d.opts.Shell, "-c", launch, d.script, d.prelude, def.Name)
	cmd.Env = append(os.Environ(), d.opts.Env...)
	cmd.Env = append(cmd.Env, EnvTest+"="+def.Name)
	if t.ForceRun() {
		cmd.Env = append(cmd.Env, EnvForceRun+"=1")
	}
	cmd.ExtraFiles = []*os.File{events}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	if out.Len() > 0 {
		_, _ = t.Writer().Write(out.Bytes())
	}

	if _, err := events.Seek(0, 0); err != nil {
		t.Logf("failed to read event file: %v", err)
		t.FailAt(def.Location, capture.StatusNotExecutable)
		return
	}
	parsed, err := parseEvents(events)
	if err != nil {
		t.Logf("failed to read event file: %v", err)
		t.FailAt(def.Location, capture.StatusNotExecutable)
		return
	}

	for _, f := range parsed.failures {
		t.FailAt(f.Location, f.Status)
	}
	if parsed.described {
		t.Describe(parsed.description)
	}

	switch {
	case !parsed.exited:
		// The prelude never finished: unreadable script, missing function,
		// or the shell itself died
		status := capture.ExitStatus(runErr)
		if status == 0 {
			status = runner.StatusCheckFailed
		}
		t.Log().Debug("Test process did not complete", "err", runErr, "status", status)
		t.FailAt(def.Location, status)
	case parsed.status != 0 && len(parsed.failures) == 0:
		// The body returned nonzero without a failing statement, e.g. return 1
		t.FailAt(def.Location, parsed.status)
	}

	if parsed.skipped {
		t.Skip(parsed.skipNote)
	}
}

type eventLog struct {
	failures    []types.Failure
	described   bool
	description string
	skipped     bool
	skipNote    string
	exited      bool
	status      int
}

const launch = `__shunit_prelude=$1; shift; . "$__shunit_prelude" "$0" "$@"`

var unescapeEvent = strings.NewReplacer(`\\`, `\`, `\t`, "\t", `\n`, "\n")

func parseEvents(f *os.File) (*eventLog, error) {
	ev := &eventLog{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		switch fields[0] {
		case "fail":
			if len(fields) < 4 {
				continue
			}
			line, _ := strconv.Atoi(fields[2])
			status, _ := strconv.Atoi(fields[3])
			loc := types.SourceLocation{File: fields[1], Line: line}
			if len(fields) > 4 {
				loc.Func = fields[4]
			}
			ev.failures = append(ev.failures, types.Failure{Location: loc, Status: status})
		case "describe":
			// Only the first describe counts, as for the scanned description
			if !ev.described {
				ev.described = true
				ev.description = unescapeEvent.Replace(strings.Join(fields[1:], "\t"))
			}
		case "skip":
			if !ev.skipped {
				ev.skipped = true
				ev.skipNote = unescapeEvent.Replace(strings.Join(fields[1:], "\t"))
			}
		case "exit":
			if len(fields) < 2 {
				continue
			}
			ev.exited = true
			ev.status, _ = strconv.Atoi(fields[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ev, nil
}
