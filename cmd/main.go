package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"

	shunit "github.com/ethereum-optimism/infra/op-shunit"
	"github.com/ethereum-optimism/infra/op-shunit/registry"
	"github.com/ethereum-optimism/infra/op-shunit/script"
	"github.com/ethereum-optimism/infra/op-shunit/types"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

const name = "op-shunit"

// op-shunit is used as a script interpreter:
//
//	#!/usr/bin/env op-shunit
//
// so the kernel runs it as `op-shunit SCRIPT [options] [selector...]`.
func main() {
	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(name),
		otelconfig.WithServiceVersion(Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	code := run(ctx, os.Args, registry.Default, os.Stdout, os.Stderr)
	shutdown()
	os.Exit(code)
}

// run runs the tests of the script named by args and returns the exit code
func run(ctx context.Context, args []string, reg *registry.Registry, stdout, stderr io.Writer) int {
	scriptPath, appArgs := splitScript(args)

	program := name
	if scriptPath != "" {
		program = scriptPath
	}
	origin := types.SourceLocation{File: program, Line: 1, Func: "main"}

	app := shunit.NewApp(shunit.Options{
		Name:     program,
		Version:  fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate),
		Registry: reg,
		Origin:   origin,
		Stdout:   stdout,
		Stderr:   stderr,
		Prepare: func(ctx context.Context, cfg *shunit.Config) (io.Closer, error) {
			if scriptPath == "" {
				return nil, shunit.NewFatalError(origin, errors.New("no test script given"))
			}
			if _, err := os.Stat(scriptPath); err != nil {
				return nil, shunit.NewFatalError(origin, err)
			}
			driver, err := script.Load(reg, scriptPath, script.Options{
				Shell: cfg.Shell,
				Log:   cfg.Log,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to load script: %w", err)
			}
			return driver, nil
		},
	})
	return app.Run(ctx, appArgs)
}

// splitScript separates the script path, the first argument when it is not
// an option, from the arguments of the test run
func splitScript(args []string) (string, []string) {
	if len(args) < 2 || strings.HasPrefix(args[1], "-") {
		return "", args
	}
	return args[1], append([]string{args[1]}, args[2:]...)
}
