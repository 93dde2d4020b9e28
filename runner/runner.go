package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-shunit/metrics"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// ResultSink consumes test results as they are produced
type ResultSink interface {
	// Consume processes a single test result
	Consume(result *types.TestResult, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// ResultStats tracks test counts of a run
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}

// RunnerResult captures the complete test run results
type RunnerResult struct {
	RunID    string
	Results  []*types.TestResult // In execution order
	Sets     types.ResultSets
	Status   types.TestStatus
	Duration time.Duration
	Stats    ResultStats
}

// TestRunner runs an ordered list of tests
type TestRunner interface {
	RunTests(ctx context.Context, tests []Test) (*RunnerResult, error)
}

// Config holds configuration for creating a new runner
type Config struct {
	Executor *Executor
	Log      log.Logger
	RunID    string       // Generated when empty
	Sinks    []ResultSink // Notified after every test and at the end of the run
}

// runner implements TestRunner. Tests run one at a time in list order.
type runner struct {
	executor *Executor
	log      log.Logger
	runID    string
	sinks    []ResultSink
	tracer   trace.Tracer
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	return &runner{
		executor: cfg.Executor,
		log:      cfg.Log,
		runID:    cfg.RunID,
		sinks:    cfg.Sinks,
		tracer:   otel.Tracer("test runner"),
	}, nil
}

// RunTests implements the TestRunner interface
func (r *runner) RunTests(ctx context.Context, tests []Test) (*RunnerResult, error) {
	runID := r.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	start := time.Now()
	r.log.Debug("Running tests", "run_id", runID, "count", len(tests))

	result := &RunnerResult{
		RunID:   runID,
		Results: make([]*types.TestResult, 0, len(tests)),
		Stats:   ResultStats{StartTime: start},
	}

	for _, test := range tests {
		testResult := r.runTest(ctx, test)
		if err := result.add(testResult); err != nil {
			return nil, err
		}
		metrics.RecordTest(runID, testResult)

		for _, sink := range r.sinks {
			if err := sink.Consume(testResult, runID); err != nil {
				return nil, fmt.Errorf("consuming result of %s: %w", test.Metadata.Name, err)
			}
		}
	}

	result.Duration = time.Since(start)
	result.Status = result.Sets.Status()
	result.Stats.EndTime = time.Now()
	metrics.RecordRun(result.Status, result.Duration)

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Complete(runID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("completing result sinks: %w", err)
	}

	r.log.Debug("Test run completed", "run_id", runID, "status", result.Status, "duration", result.Duration)
	return result, nil
}

func (r *runner) runTest(ctx context.Context, test Test) *types.TestResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", test.Metadata.Name))
	defer span.End()

	result := r.executor.Execute(ctx, test)

	span.SetAttributes(
		attribute.String("test.name", test.Metadata.Name),
		attribute.String("test.status", string(result.Status)),
		attribute.Int("test.failures", len(result.Failures)),
	)
	if result.Status == types.TestStatusFail {
		span.SetStatus(codes.Error, "test failed")
	}
	return result
}

func (r *RunnerResult) add(result *types.TestResult) error {
	if err := r.Sets.Record(result.Metadata.Name, result.Status); err != nil {
		return err
	}
	r.Results = append(r.Results, result)
	r.Stats.Total++
	switch result.Status {
	case types.TestStatusPass:
		r.Stats.Passed++
	case types.TestStatusFail:
		r.Stats.Failed++
	case types.TestStatusSkip:
		r.Stats.Skipped++
	}
	return nil
}

// String returns a plain text rendering of the run
func (r *RunnerResult) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped))

	for _, test := range r.Results {
		b.WriteString(fmt.Sprintf("├── Test: %s (%s) [status=%s]\n",
			test.Metadata.Name, formatDuration(test.Duration), test.Status))
		for _, failure := range test.Failures {
			b.WriteString(fmt.Sprintf("│       └── Failure: %s\n", failure))
		}
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
