package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/depsentry/depsentry/pkg/buildinfo"
)

// Execute runs the depsentry CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (scan, cycles,
// export, serve, worker), configures logging based on the --verbose flag,
// and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "depsentry",
		Short:        "Depsentry scans dependency graphs within strict resource bounds",
		Long:         `Depsentry walks package dependency graphs iteratively, enumerating every reachable package, detecting circular dependencies, and rolling up transitive vulnerability counts while honoring depth, node, time, and memory limits.`,
		Version:      buildinfo.Version(),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newScanCmd())
	root.AddCommand(newCyclesCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newWorkerCmd())

	return root.ExecuteContext(ctx)
}
