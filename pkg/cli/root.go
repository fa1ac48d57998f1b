package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/netmonkey/internal/cliconfig"
	"github.com/getmockd/netmonkey/pkg/cli/internal/output"
	"github.com/getmockd/netmonkey/pkg/logging"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globals holds the persistent flag values and the state resolved from them
// before any subcommand runs.
type globals struct {
	configFile string
	mode       string
	seed       int64
	logLevel   string
	logFormat  string
	logFile    string
	jsonOutput bool

	settings *cliconfig.CLIConfig
	log      *slog.Logger
}

// NewRootCmd builds the netmonkey command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "netmonkey",
		Short: "netmonkey injects faults into outgoing HTTP traffic",
		Long: `netmonkey wraps HTTP calls with randomized, weighted faults: replaced status
codes, added latency and simulated transport failures.

Faults come from a fault file (--config) or ad-hoc flags. Settings can also be
provided via NETMONKEY_* environment variables or a .netmonkeyrc.yaml file.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.resolve(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "f", "", "Fault file (YAML or JSON)")
	pf.StringVar(&g.mode, "mode", cliconfig.DefaultMode, "Engine mode: default, aggressive or test")
	pf.Int64Var(&g.seed, "seed", 0, "Seed for reproducible fault selection")
	pf.StringVar(&g.logLevel, "log-level", cliconfig.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", cliconfig.DefaultLogFormat, "Log format: text or json")
	pf.StringVar(&g.logFile, "log-file", "", "Also write JSON logs to this rotating file")
	pf.BoolVar(&g.jsonOutput, "json", false, "Output command results in JSON format")

	rootCmd.AddCommand(
		newRequestCmd(g),
		newBenchCmd(g),
		newProxyCmd(g),
		newValidateCmd(g),
		newVersionCmd(g),
	)
	return rootCmd
}

// resolve layers flags over env and settings files and builds the logger.
func (g *globals) resolve(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	settings, err := cliconfig.LoadAll(cwd)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	flags := cmd.Flags()
	setFlag := func(name, key, value string, dst *string) {
		if flags.Changed(name) {
			*dst = value
			settings.Sources[key] = cliconfig.SourceFlag
		}
	}
	setFlag("config", "configFile", g.configFile, &settings.ConfigFile)
	setFlag("mode", "mode", g.mode, &settings.Mode)
	setFlag("log-level", "logLevel", g.logLevel, &settings.LogLevel)
	setFlag("log-format", "logFormat", g.logFormat, &settings.LogFormat)
	setFlag("log-file", "logFile", g.logFile, &settings.LogFile)
	if flags.Changed("seed") {
		settings.Seed = g.seed
		settings.Sources["seed"] = cliconfig.SourceFlag
	}
	if flags.Changed("json") {
		settings.JSON = g.jsonOutput
		settings.Sources["json"] = cliconfig.SourceFlag
	}

	switch settings.Mode {
	case "default", "aggressive", "test":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, settings.Mode)
	}

	g.settings = settings
	g.log = logging.New(logging.Config{
		Level:  logging.ParseLevel(settings.LogLevel),
		Format: logging.ParseFormat(settings.LogFormat),
		Output: cmd.ErrOrStderr(),
		File:   settings.LogFile,
	})
	g.log.Debug("resolved settings", "mode", settings.Mode, "config", settings.ConfigFile, "sources", settings.Sources)
	return nil
}

// printResult writes data as JSON when --json is active, otherwise calls textFn.
//
// Contract: when --json is active, ONLY the JSON encoding of data is written
// to stdout. Human-readable prose goes to stderr or is omitted.
func (g *globals) printResult(w io.Writer, data any, textFn func()) error {
	if g.settings != nil && g.settings.JSON {
		return output.JSON(w, data)
	}
	textFn()
	return nil
}

// Execute runs the root command and exits with a non-zero status on error.
// This is called by main.main().
func Execute() {
	os.Exit(Main())
}

// Main runs the CLI against os.Args and returns the process exit code.
func Main() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(cmd *cobra.Command, args []string, errOut io.Writer) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
	return 0
}
