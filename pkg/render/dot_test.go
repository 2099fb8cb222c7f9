package render

import (
	"strings"
	"testing"

	"github.com/depsentry/depsentry/pkg/graphio"
)

func testGraph() graphio.Graph {
	return graphio.Graph{
		Nodes: []graphio.Node{
			{Name: "app", Version: "1.0.0"},
			{Name: "lib", Version: "2.0.0", Vulnerable: true, VulnerabilityCount: 3},
			{Name: "old", Version: "0.1.0", Outdated: true},
		},
		Edges: []graphio.Edge{
			{From: "app@1.0.0", To: "lib@2.0.0"},
			{From: "app@1.0.0", To: "old@0.1.0"},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(), Options{})

	if !strings.HasPrefix(dot, "digraph dependencies {") {
		t.Error("missing digraph header")
	}
	for _, want := range []string{
		`"app@1.0.0"`,
		`"app@1.0.0" -> "lib@2.0.0";`,
		"fillcolor=mistyrose", // vulnerable node
		"fillcolor=lightyellow", // outdated node
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}
}

func TestToDOTDetailedLabels(t *testing.T) {
	dot := ToDOT(testGraph(), Options{Detailed: true})

	if !strings.Contains(dot, "vulnerabilities: 3") {
		t.Error("detailed label missing vulnerability count")
	}
	if !strings.Contains(dot, "outdated") {
		t.Error("detailed label missing outdated marker")
	}
}

func TestToDOTCycleHighlighting(t *testing.T) {
	g := graphio.Graph{
		Nodes: []graphio.Node{
			{Name: "a", Version: "1.0.0"},
			{Name: "b", Version: "1.0.0"},
		},
		Edges: []graphio.Edge{
			{From: "a@1.0.0", To: "b@1.0.0"},
			{From: "b@1.0.0", To: "a@1.0.0"},
		},
	}
	dot := ToDOT(g, Options{Cycles: []string{"a@1.0.0 → b@1.0.0 → a@1.0.0"}})

	if !strings.Contains(dot, `"a@1.0.0" -> "b@1.0.0" [color=red, penwidth=2];`) {
		t.Error("cycle edge a->b not highlighted")
	}
	if !strings.Contains(dot, `"b@1.0.0" -> "a@1.0.0" [color=red, penwidth=2];`) {
		t.Error("cycle edge b->a not highlighted")
	}
}

func TestToDOTRootMarkerSkipped(t *testing.T) {
	g := graphio.Graph{
		Nodes: []graphio.Node{{Name: "a", Version: "1.0.0"}},
	}
	// Collect-pass cycle strings start with the synthetic root marker; it
	// must not surface as a graph node or edge.
	dot := ToDOT(g, Options{Cycles: []string{"root → a@1.0.0 → a@1.0.0"}})

	if strings.Contains(dot, `"root"`) {
		t.Error("synthetic root marker leaked into DOT output")
	}
}

func TestCycleEdgeSet(t *testing.T) {
	edges := cycleEdgeSet([]string{"a@1 → b@1 → a@1"})

	want := []graphio.Edge{
		{From: "a@1", To: "b@1"},
		{From: "b@1", To: "a@1"},
	}
	for _, e := range want {
		if !edges[e] {
			t.Errorf("edge %v missing from cycle set", e)
		}
	}
	if len(edges) != 2 {
		t.Errorf("got %d edges, want 2", len(edges))
	}
}
