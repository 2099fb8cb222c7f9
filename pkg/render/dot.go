// Package render exports dependency graphs as Graphviz diagrams.
//
// The flat node/edge serialization form is already what DOT wants, so
// cyclic graphs render without special casing. Vulnerable and outdated
// packages get distinct fills, and edges participating in detected cycles
// are drawn in red.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/depsentry/depsentry/pkg/graphio"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes version, depth and flag lines in node labels.
	// When false, only name@version is shown.
	Detailed bool

	// Cycles holds "→"-joined cycle paths (as produced by the traverser);
	// every edge along them is highlighted.
	Cycles []string
}

// ToDOT converts a serialized graph to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG].
func ToDOT(g graphio.Graph, opts Options) string {
	cycleEdges := cycleEdgeSet(opts.Cycles)

	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Key(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if cycleEdges[e] {
			fmt.Fprintf(&buf, "  %q -> %q [color=red, penwidth=2];\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// cycleEdgeSet expands cycle path strings into the edges they traverse.
func cycleEdgeSet(cycles []string) map[graphio.Edge]bool {
	edges := make(map[graphio.Edge]bool)
	for _, cycle := range cycles {
		hops := strings.Split(cycle, " → ")
		for i := 0; i+1 < len(hops); i++ {
			// Paths may start with the synthetic root marker, which is
			// not a graph node.
			if hops[i] == "root" {
				continue
			}
			edges[graphio.Edge{From: hops[i], To: hops[i+1]}] = true
		}
	}
	return edges
}

func fmtLabel(n graphio.Node, detailed bool) string {
	if !detailed {
		return n.Key()
	}

	parts := []string{n.Name, "version: " + n.Version}
	if n.Depth > 0 {
		parts = append(parts, fmt.Sprintf("depth: %d", n.Depth))
	}
	if n.Vulnerable {
		parts = append(parts, fmt.Sprintf("vulnerabilities: %d", n.VulnerabilityCount))
	}
	if n.Outdated {
		parts = append(parts, "outdated")
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n graphio.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Vulnerable:
		attrs = append(attrs, "fillcolor=mistyrose", "color=red")
	case n.Outdated:
		attrs = append(attrs, "fillcolor=lightyellow", "color=orange3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
