package runner

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-shunit/capture"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// Hooks are optional functions invoked around every test
type Hooks struct {
	Setup    TestFunc
	Teardown TestFunc
}

// ExecutorConfig holds configuration for the test executor
type ExecutorConfig struct {
	Log      log.Logger
	Hooks    Hooks
	ForceRun bool            // Record skip signals but keep running the test
	Capture  *capture.Runner // Runner used by T.Run and T.Exec
	Sources  *SourceCache    // Source lookup for failing statements
}

// Executor runs a single test through its lifecycle:
// setup, body (unless skipped), teardown, categorization.
type Executor struct {
	cfg ExecutorConfig
}

// NewExecutor creates a new executor, filling in defaults for unset fields
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Capture == nil {
		cfg.Capture = &capture.Runner{}
	}
	if cfg.Sources == nil {
		cfg.Sources = NewSourceCache()
	}
	return &Executor{cfg: cfg}
}

// Execute runs test and returns its categorized result. Failures inside the
// test never escape as errors or panics.
func (e *Executor) Execute(ctx context.Context, test Test) *types.TestResult {
	t := newT(ctx, test.Metadata, e.cfg)
	start := time.Now()

	t.protect(func() {
		if e.cfg.Hooks.Setup != nil {
			e.cfg.Hooks.Setup(t)
		}
		test.Func(t)
	})
	if e.cfg.Hooks.Teardown != nil {
		t.protect(func() {
			e.cfg.Hooks.Teardown(t)
		})
	}

	result := t.result()
	result.Duration = time.Since(start)
	t.log.Debug("Test finished", "status", result.Status, "failures", len(result.Failures), "duration", result.Duration)
	return result
}
