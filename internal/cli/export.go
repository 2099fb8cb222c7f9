package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/depgraph"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/graphio"
	"github.com/depsentry/depsentry/pkg/render"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	configPath string // optional TOML config file
	output     string // output file path
	format     string // "dot" or "svg"
	detailed   bool   // include version/depth/flag lines in node labels
	cycles     bool   // run a cycle scan and highlight the edges
}

// newExportCmd creates the export command for generating Graphviz diagrams.
func newExportCmd() *cobra.Command {
	opts := exportOpts{format: formatDOT}

	cmd := &cobra.Command{
		Use:   "export [graph.json]",
		Short: "Export a dependency graph as a DOT or SVG diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.format = strings.ToLower(opts.format)
			if opts.format != formatDOT && opts.format != formatSVG {
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want dot or svg)", opts.format)
			}
			return runExport(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultFile+")")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with new extension; dot prints to stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot (default), svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show version, depth, and vulnerability details in node labels")
	cmd.Flags().BoolVar(&opts.cycles, "cycles", false, "detect cycles and highlight their edges")

	return cmd
}

func runExport(cmd *cobra.Command, path string, opts *exportOpts) error {
	logger := loggerFromContext(cmd.Context())

	g, err := graphio.ReadGraphFile(path)
	if err != nil {
		return err
	}

	renderOpts := render.Options{Detailed: opts.detailed}
	if opts.cycles {
		settings, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		roots, err := graphio.ToNodes(g)
		if err != nil {
			return err
		}
		renderOpts.Cycles = depgraph.New(settings.TraversalConfig()).DetectCycles(roots)
		logger.Debug("cycle scan for highlighting", "cycles", len(renderOpts.Cycles))
	}

	dot := render.ToDOT(g, renderOpts)

	switch opts.format {
	case formatDOT:
		if opts.output == "" {
			fmt.Print(dot)
			return nil
		}
		if err := os.WriteFile(opts.output, []byte(dot), 0o644); err != nil {
			return err
		}
	case formatSVG:
		sp := newSpinnerWithContext(cmd.Context(), "Rendering SVG...")
		sp.Start()
		svg, err := render.RenderSVG(dot)
		sp.Stop()
		if err != nil {
			return err
		}
		if opts.output == "" {
			opts.output = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".svg"
		}
		if err := os.WriteFile(opts.output, svg, 0o644); err != nil {
			return err
		}
	}

	printSuccess("Exported %s diagram", opts.format)
	printFile(opts.output)
	return nil
}
