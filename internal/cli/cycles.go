package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/depgraph"
	"github.com/depsentry/depsentry/pkg/graphio"
)

// newCyclesCmd creates the cycles command. It runs the standalone cycle
// scan over a serialized graph and prints every circular chain found.
func newCyclesCmd() *cobra.Command {
	var configPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cycles [graph.json]",
		Short: "Detect circular dependency chains in a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycles(cmd, args[0], configPath, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultFile+")")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print cycles as a JSON array")

	return cmd
}

func runCycles(cmd *cobra.Command, path, configPath string, jsonOut bool) error {
	logger := loggerFromContext(cmd.Context())

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	g, err := graphio.ReadGraphFile(path)
	if err != nil {
		return err
	}
	roots, err := graphio.ToNodes(g)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	cycles := depgraph.New(settings.TraversalConfig()).DetectCycles(roots)
	prog.done("Cycle scan finished")

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cycles)
	}

	if len(cycles) == 0 {
		printSuccess("No circular dependencies")
		printStats(len(g.Nodes), len(g.Edges), len(g.Roots))
		return nil
	}

	printWarning("%d circular dependency chain(s)", len(cycles))
	for _, cycle := range cycles {
		printDetail("%s", cycle)
	}
	printNewline()
	printNextStep("Highlight them in a diagram", "depsentry export "+path+" --cycles")
	return nil
}
