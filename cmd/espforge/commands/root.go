package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	jsonOutput  bool
	historyDB   string
	metricsFile string
	manifestDir string
	policyPaths []string

	// appVersion is reported on spans and metrics.
	appVersion string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	appVersion = version
	rootCmd := &cobra.Command{
		Use:   "espforge",
		Short: "espforge - configuration-driven ESP32 firmware generator",
		Long: `espforge turns a YAML project description into the pieces of an
embedded Rust firmware: peripheral initializations, setup code, the main
loop body and async tasks.

Features:
  - Component and device manifests rendered from templates
  - Validation pipeline with per-check findings
  - Hardware policies via OPA/rego
  - App scripts transpiled to Rust statements
  - Compile history and watch mode`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "tool settings file (yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&jsonOutput, "json", false, "output in JSON format")
	flags.StringVar(&historyDB, "history-db", "", "sqlite database recording compile runs")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after each compile")
	flags.StringVar(&manifestDir, "manifests", "", "directory with extra component/global/device manifests")
	flags.StringSliceVar(&policyPaths, "policy", nil, "additional rego/json policy files or directories")

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newManifestsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
