package flags

import (
	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_SHUNIT"

var (
	ListTests = &cli.BoolFlag{
		Name:    "list-tests",
		Aliases: []string{"l"},
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST_TESTS"),
		Usage:   "List the registered tests (index, name, description) and exit without running them",
	}
	ForceRun = &cli.BoolFlag{
		Name:    "force-run",
		Aliases: []string{"f"},
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORCE_RUN"),
		Usage:   "Run skipped tests anyway; skip calls are recorded but do not end the test",
	}
	CheckDuplicates = &cli.BoolFlag{
		Name:    "check-duplicates",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CHECK_DUPLICATES"),
		Usage:   "Fail before running any test when a test name is defined more than once",
	}
	Shell = &cli.StringFlag{
		Name:    "shell",
		Value:   "bash",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHELL"),
		Usage:   "Shell used to run the tests of a script",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to write per-test log files to. Disabled when empty",
	}
	ReportFile = &cli.StringFlag{
		Name:    "report-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_FILE"),
		Usage:   "Path to write a YAML report of the run to. Disabled when empty",
	}
	MetricsTextfile = &cli.StringFlag{
		Name:    "metrics.textfile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_TEXTFILE"),
		Usage:   "Path to write run metrics to in the Prometheus text format (eg. for the node exporter textfile collector)",
	}
	NoColor = &cli.BoolFlag{
		Name:    "no-color",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_COLOR"),
		Usage:   "Disable colored result markers",
	}
)

var optionalFlags = []cli.Flag{
	ListTests,
	ForceRun,
	CheckDuplicates,
	Shell,
	LogDir,
	ReportFile,
	MetricsTextfile,
	NoColor,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = optionalFlags
}
