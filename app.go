package shunit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-shunit/flags"
	"github.com/ethereum-optimism/infra/op-shunit/registry"
	"github.com/ethereum-optimism/infra/op-shunit/runner"
	"github.com/ethereum-optimism/infra/op-shunit/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

// undefinedFlagPrefix is how the flag package reports an unknown option
const undefinedFlagPrefix = "flag provided but not defined: "

// Options configures the command line application
type Options struct {
	Name     string               // Program name used in usage and diagnostics
	Version  string               // Adds a --version flag when set
	Registry *registry.Registry   // Tests to run, registry.Default when nil
	Origin   types.SourceLocation // Reported by fatal errors
	Stdout   io.Writer            // Report output, os.Stdout when nil
	Stderr   io.Writer            // Logs and diagnostics, os.Stderr when nil

	// Prepare runs once the command line is parsed, before the registry is
	// validated. The returned closer, if any, is closed after the run.
	// Errors are runtime errors unless they are a FatalError.
	Prepare func(ctx context.Context, cfg *Config) (io.Closer, error)
}

// App is the command line application running the registered tests
type App struct {
	*cli.App
	opts Options
	args []string
}

// NewApp creates the command line application for opts
func NewApp(opts Options) *App {
	if opts.Name == "" {
		opts.Name = filepath.Base(os.Args[0])
	}
	if opts.Registry == nil {
		opts.Registry = registry.Default
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	a := &App{opts: opts}
	app := cli.NewApp()
	app.Name = opts.Name
	app.Version = opts.Version
	app.HideVersion = opts.Version == ""
	app.Usage = "Run shell unit tests"
	app.UsageText = opts.Name + " [options] [selector...]"
	app.Description = "Selectors pick tests by index, name, description or regular expression. All tests run when none is given."
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.HideHelpCommand = true
	app.Writer = opts.Stdout
	app.ErrWriter = opts.Stderr
	app.OnUsageError = a.onUsageError
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Action = a.action
	a.App = app
	return a
}

// Run runs the application with args, args[0] being the program, and
// returns the exit code. Errors are printed to stderr.
func (a *App) Run(ctx context.Context, args []string) int {
	a.args = args
	err := a.App.RunContext(ctx, args)
	if err != nil {
		fmt.Fprintln(a.ErrWriter, err)
	}
	return ExitCode(err)
}

func (a *App) action(ctx *cli.Context) error {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(ctx.App.ErrWriter, logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())

	cfg, err := NewConfig(ctx, logger)
	if err != nil {
		return NewFatalError(a.opts.Origin, fmt.Errorf("failed to create config: %w", err))
	}

	if a.opts.Prepare != nil {
		closer, err := a.opts.Prepare(ctx.Context, cfg)
		if IsFatalError(err) {
			return err
		} else if err != nil {
			return NewRuntimeError(err)
		}
		if closer != nil {
			defer func() {
				if err := closer.Close(); err != nil {
					logger.Warn("Failed to clean up", "error", err)
				}
			}()
		}
	}

	e, err := newEngine(cfg, a.opts.Registry, a.opts.Origin, ctx.App.Writer)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create engine: %w", err))
	}
	return e.run(ctx.Context)
}

func (a *App) onUsageError(ctx *cli.Context, err error, isSubcommand bool) error {
	msg := err.Error()
	if !strings.HasPrefix(msg, undefinedFlagPrefix) {
		return NewFatalError(a.opts.Origin, err)
	}
	return &UsageError{
		Program: a.opts.Name,
		Option:  originalOption(a.args, strings.TrimPrefix(msg, undefinedFlagPrefix)),
	}
}

// originalOption finds the command line argument behind an option the flag
// package reports with a single dash
func originalOption(args []string, reported string) string {
	name := strings.TrimLeft(reported, "-")
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		option, _, _ := strings.Cut(arg, "=")
		if strings.TrimLeft(option, "-") == name {
			return option
		}
	}
	return reported
}

// Main runs the tests registered with Register using the process command
// line and exits the process
func Main() {
	origin := runner.Caller(1, nil)
	ctx := ctxinterrupt.WithSignalWaiterMain(context.Background())
	app := NewApp(Options{Origin: origin})
	os.Exit(app.Run(ctx, os.Args))
}
