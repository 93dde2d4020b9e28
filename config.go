package shunit

import (
	"fmt"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-shunit/flags"
)

// Config holds the configuration of a single run
type Config struct {
	ListTests       bool     // Print the registry instead of running tests
	ForceRun        bool     // Record skip signals but keep running tests
	CheckDuplicates bool     // Duplicate definitions abort the run
	Shell           string   // Shell running script tests
	LogDir          string   // Directory for per-test log files, disabled when empty
	ReportFile      string   // YAML report path, disabled when empty
	MetricsTextfile string   // Prometheus textfile path, disabled when empty
	Color           bool     // Colored result markers
	Selectors       []string // Positional selector tokens, all tests when empty
	Log             log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	logDir, err := absOrEmpty(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}
	reportFile, err := absOrEmpty(ctx.String(flags.ReportFile.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for report file: %w", err)
	}
	metricsTextfile, err := absOrEmpty(ctx.String(flags.MetricsTextfile.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for metrics textfile: %w", err)
	}

	shell := ctx.String(flags.Shell.Name)
	if shell == "" {
		return nil, fmt.Errorf("shell cannot be empty")
	}

	return &Config{
		ListTests:       ctx.Bool(flags.ListTests.Name),
		ForceRun:        ctx.Bool(flags.ForceRun.Name),
		CheckDuplicates: ctx.Bool(flags.CheckDuplicates.Name),
		Shell:           shell,
		LogDir:          logDir,
		ReportFile:      reportFile,
		MetricsTextfile: metricsTextfile,
		Color:           !ctx.Bool(flags.NoColor.Name),
		Selectors:       ctx.Args().Slice(),
		Log:             log,
	}, nil
}

func absOrEmpty(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return filepath.Abs(path)
}
