package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/graphio"
	"github.com/depsentry/depsentry/pkg/observability"
	"github.com/depsentry/depsentry/pkg/scan"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	configPath  string // optional TOML config file
	repository  string // repository label for the report
	jsonOut     bool   // print the full report as JSON instead of a summary
	interactive bool   // live progress view while scanning
	output      string // write the report JSON to a file
}

// newScanCmd creates the scan command. It walks a serialized dependency
// graph within the configured limits and produces a scan report.
func newScanCmd() *cobra.Command {
	var opts scanOpts

	cmd := &cobra.Command{
		Use:   "scan [graph.json]",
		Short: "Scan a dependency graph and report packages, cycles, and rollups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultFile+")")
	cmd.Flags().StringVarP(&opts.repository, "repository", "r", "", "repository label (default: graph metadata or file name)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "show live traversal progress")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report JSON to a file")

	return cmd
}

func runScan(cmd *cobra.Command, path string, opts *scanOpts) error {
	logger := loggerFromContext(cmd.Context())

	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	g, err := graphio.ReadGraphFile(path)
	if err != nil {
		return err
	}

	repo := opts.repository
	if repo == "" {
		repo = g.Repository
	}
	if repo == "" {
		repo = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	scanner := scan.NewScanner(settings.TraversalConfig(), logger)

	var report *scan.Report
	if opts.interactive {
		report, err = runInteractiveScan(scanner, repo, g)
	} else {
		sp := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Scanning %s...", repo))
		observability.SetTraversalHooks(spinnerHooks{spinner: sp, repo: repo})
		sp.Start()
		prog := newProgress(logger)
		report, err = scanner.Scan(repo, g)
		sp.Stop()
		observability.Reset()
		if err == nil {
			prog.done(fmt.Sprintf("Visited %d nodes", report.Metrics.TotalNodes))
		}
	}
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := writeReportFile(opts.output, report); err != nil {
			return err
		}
		printSuccess("Report written")
		printFile(opts.output)
		return nil
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReportSummary(path, g, report)
	return nil
}

// spinnerHooks feeds the package currently being visited into the spinner
// message.
type spinnerHooks struct {
	observability.NoopTraversalHooks
	spinner *Spinner
	repo    string
}

func (h spinnerHooks) OnNodeVisited(key string, _ int) {
	h.spinner.SetMessage(fmt.Sprintf("Scanning %s... %s", h.repo, key))
}

// printReportSummary prints the human-readable scan result.
func printReportSummary(path string, g graphio.Graph, report *scan.Report) {
	m := report.Metrics

	printSuccess("Scanned %s", StyleHighlight.Render(report.Repository))
	printStats(len(g.Nodes), len(g.Edges), len(g.Roots))
	printNewline()

	printKeyValue("status", string(report.Status))
	printKeyValue("packages", fmt.Sprintf("%d", m.UniquePackages))
	printKeyValue("visits", fmt.Sprintf("%d", m.TotalNodes))
	printKeyValue("max depth", fmt.Sprintf("%d", m.MaxDepth))
	printKeyValue("elapsed", fmt.Sprintf("%dms", m.ProcessingTimeMs))
	printKeyValue("memory", fmt.Sprintf("%.1fMB", m.MemoryUsageMB))

	if m.WarningsCount > 0 || m.ErrorsCount > 0 {
		printNewline()
		if m.WarningsCount > 0 {
			printWarning("%d warning(s): some branches were truncated", m.WarningsCount)
		}
		if m.ErrorsCount > 0 {
			printError("%d hard limit(s) hit, results are partial", m.ErrorsCount)
		}
	}

	if len(report.Cycles) > 0 {
		printNewline()
		printWarning("%d circular dependency chain(s)", len(report.Cycles))
		for _, cycle := range report.Cycles {
			printDetail("%s", cycle)
		}
	}

	var vulnerable, outdated int
	for _, d := range report.Dependencies {
		if d.Vulnerable {
			vulnerable++
		}
		if d.Outdated {
			outdated++
		}
	}
	if vulnerable > 0 || outdated > 0 {
		printNewline()
		if vulnerable > 0 {
			printWarning("%d direct dependency(ies) with known vulnerabilities", vulnerable)
		}
		if outdated > 0 {
			printInfo("%d direct dependency(ies) outdated", outdated)
		}
	}

	printNewline()
	printNextStep("Export a diagram", "depsentry export "+path+" --format svg")
}

// writeReportFile writes the report as indented JSON.
func writeReportFile(path string, report *scan.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
