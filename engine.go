package shunit

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-shunit/logging"
	"github.com/ethereum-optimism/infra/op-shunit/metrics"
	"github.com/ethereum-optimism/infra/op-shunit/registry"
	"github.com/ethereum-optimism/infra/op-shunit/reporting"
	"github.com/ethereum-optimism/infra/op-shunit/runner"
	"github.com/ethereum-optimism/infra/op-shunit/selector"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// engine runs the tests of a registry once: validate, select, execute and
// report
type engine struct {
	config   *Config
	registry *registry.Registry
	origin   types.SourceLocation
	stdout   io.Writer
	runID    string
	result   *runner.RunnerResult
}

func newEngine(config *Config, reg *registry.Registry, origin types.SourceLocation, stdout io.Writer) (*engine, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if config.Log == nil {
		config.Log = log.New()
		config.Log.Error("No logger provided, using default")
	}

	config.Log.Debug("Creating engine with config",
		"listTests", config.ListTests,
		"forceRun", config.ForceRun,
		"checkDuplicates", config.CheckDuplicates,
		"logDir", config.LogDir,
		"reportFile", config.ReportFile,
		"selectors", config.Selectors)

	return &engine{
		config:   config,
		registry: reg,
		origin:   origin,
		stdout:   stdout,
		runID:    uuid.New().String(),
	}, nil
}

// run executes the selected tests. Fatal errors are returned before any
// test executes.
func (e *engine) run(ctx context.Context) error {
	if err := e.registry.Validate(e.config.CheckDuplicates); err != nil {
		metrics.RecordErrorDetails("registry", err)
		return NewFatalError(e.origin, err)
	}

	if e.config.ListTests {
		reporting.ListTests(e.stdout, e.registry.Metadata())
		return nil
	}

	tests, err := e.selectTests()
	if err != nil {
		metrics.RecordErrorDetails("selector", err)
		return NewFatalError(e.origin, err)
	}
	e.config.Log.Debug("Selected tests", "count", len(tests), "registered", e.registry.Len())

	sinks, fileLogger, err := e.sinks()
	if err != nil {
		return NewRuntimeError(err)
	}

	executor := runner.NewExecutor(runner.ExecutorConfig{
		Log:      e.config.Log,
		Hooks:    e.registry.Hooks(),
		ForceRun: e.config.ForceRun,
		Sources:  runner.NewSourceCache(),
	})
	testRunner, err := runner.NewTestRunner(runner.Config{
		Executor: executor,
		Log:      e.config.Log,
		RunID:    e.runID,
		Sinks:    sinks,
	})
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create test runner: %w", err))
	}

	result, err := testRunner.RunTests(ctx, tests)
	if err != nil {
		e.config.Log.Error("Runtime error running tests", "error", err)
		metrics.RecordErrorDetails("run", err)
		return NewRuntimeError(err)
	}
	e.result = result

	if fileLogger != nil {
		e.config.Log.Info("Wrote test logs", "dir", fileLogger.GetBaseDir())
	}
	if e.config.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(e.config.MetricsTextfile); err != nil {
			return NewRuntimeError(err)
		}
	}

	e.config.Log.Debug("Test run completed", "run_id", result.RunID, "status", result.Status)
	if result.Status == types.TestStatusFail {
		return NewTestFailureError(result.Stats.Failed, result.Stats.Total)
	}
	return nil
}

// selectTests resolves the configured selectors into registered tests, in
// run order
func (e *engine) selectTests() ([]runner.Test, error) {
	selected, err := selector.Resolve(e.registry.Metadata(), e.config.Selectors)
	if err != nil {
		return nil, err
	}
	tests := make([]runner.Test, 0, len(selected))
	for _, meta := range selected {
		test, ok := e.registry.Lookup(meta.Name)
		if !ok {
			return nil, fmt.Errorf("%s: test is not registered", meta.Name)
		}
		tests = append(tests, test)
	}
	return tests, nil
}

func (e *engine) sinks() ([]runner.ResultSink, *logging.FileLogger, error) {
	sinks := []runner.ResultSink{reporting.NewConsoleSink(e.stdout, e.config.Color)}

	var fileLogger *logging.FileLogger
	if e.config.LogDir != "" {
		var err error
		fileLogger, err = logging.NewFileLogger(e.config.LogDir, e.runID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		sinks = append(sinks, fileLogger)
	}
	if e.config.ReportFile != "" {
		sinks = append(sinks, reporting.NewYAMLReportSink(e.config.ReportFile))
	}
	return sinks, fileLogger, nil
}
