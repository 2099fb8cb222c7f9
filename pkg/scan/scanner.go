// Package scan assembles scan reports from dependency graphs.
//
// A Scanner drives the depgraph traversal engine: it materializes a
// serialized graph, enumerates every reachable package, detects cycles, and
// computes a per-direct-dependency transitive rollup, producing a [Report]
// ready for persistence or API responses.
package scan

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/depsentry/depsentry/pkg/depgraph"
	"github.com/depsentry/depsentry/pkg/graphio"
)

// Scanner turns serialized dependency graphs into reports.
// It is stateless between calls; a fresh traverser is created per scan, so
// independent scanners (or sequential scans on one scanner) never share
// visited-set state.
type Scanner struct {
	cfg    depgraph.Config
	logger *log.Logger
}

// NewScanner creates a Scanner with the given traversal limits.
// A nil logger disables scan logging.
func NewScanner(cfg depgraph.Config, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scanner{cfg: cfg.WithDefaults(), logger: logger}
}

// Scan walks the serialized graph and assembles a report.
//
// Bounded conditions (cycles, any limit hit) never fail a scan: they are
// reflected in the report's metrics and a StatusPartial outcome. The only
// errors returned are structural (malformed nodes, dangling edges).
func (s *Scanner) Scan(repository string, g graphio.Graph) (*Report, error) {
	started := time.Now()

	roots, err := graphio.ToNodes(g)
	if err != nil {
		return nil, err
	}

	tr := depgraph.New(s.cfg)
	packages, err := tr.CollectAllPackages(roots, 0, 0)
	if err != nil {
		return nil, err
	}
	metrics := tr.Metrics()
	cycles := tr.CircularDependencies()

	deps := make([]Dependency, 0, len(roots))
	for _, root := range roots {
		// Each rollup runs with its own visited set: a package shared
		// across several direct dependencies counts toward every one of
		// their rollups.
		info, err := tr.CalculateTransitiveInfo(root)
		if err != nil {
			return nil, err
		}
		deps = append(deps, Dependency{
			Name:               root.Name,
			Version:            root.Version,
			Vulnerable:         root.IsVulnerable,
			VulnerabilityCount: root.VulnerabilityCount,
			Outdated:           root.IsOutdated,
			Transitive:         info,
		})
	}

	status := StatusCompleted
	if metrics.ErrorsCount > 0 {
		status = StatusPartial
	}

	s.logger.Info("scan finished",
		"repository", repository,
		"status", status,
		"packages", metrics.UniquePackages,
		"visits", metrics.TotalNodes,
		"cycles", metrics.CircularReferences,
		"elapsed", time.Since(started).Round(time.Millisecond))

	return &Report{
		ID:           NewReportID(),
		Repository:   repository,
		Status:       status,
		CreatedAt:    started,
		CompletedAt:  time.Now(),
		Dependencies: deps,
		Packages:     packages,
		Cycles:       cycles,
		Metrics:      metrics,
	}, nil
}
