package graphio

import (
	"slices"
	"strings"

	"github.com/depsentry/depsentry/pkg/depgraph"
	"github.com/depsentry/depsentry/pkg/errors"
)

// =============================================================================
// Graph - Dependency Graph Serialization
// =============================================================================

// Graph is the canonical serialization format for dependency graphs.
// Used for API requests, storage, queue payloads, and cross-tool exchange.
//
// The format is a flat node list plus an edge list keyed by name@version, so
// shared subtrees and cycles serialize without duplication or infinite
// nesting. Round-trip fidelity holds: import → traverse → export → re-import
// produces identical results.
type Graph struct {
	Repository string `json:"repository,omitempty" bson:"repository,omitempty"`
	Nodes      []Node `json:"nodes" bson:"nodes"`
	Edges      []Edge `json:"edges" bson:"edges"`

	// Roots lists the name@version keys of the scan entry points. When
	// empty, nodes without incoming edges are treated as roots.
	Roots []string `json:"roots,omitempty" bson:"roots,omitempty"`
}

// Node is the serialized form of a dependency graph vertex.
type Node struct {
	Name               string `json:"name" bson:"name"`
	Version            string `json:"version" bson:"version"`
	Depth              int    `json:"depth,omitempty" bson:"depth,omitempty"` // Advisory discovery depth
	Vulnerable         bool   `json:"vulnerable,omitempty" bson:"vulnerable,omitempty"`
	VulnerabilityCount int    `json:"vulnerability_count,omitempty" bson:"vulnerability_count,omitempty"`
	Outdated           bool   `json:"outdated,omitempty" bson:"outdated,omitempty"`
}

// Key returns the node's name@version identity key.
func (n Node) Key() string {
	return n.Name + depgraph.KeySeparator + n.Version
}

// Edge represents a directed dependency between two nodes, identified by
// their name@version keys.
type Edge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

// =============================================================================
// Graph ↔ DependencyNode Conversion
// =============================================================================

// ToNodes materializes the serialized graph into linked DependencyNode form
// and returns the root nodes to traverse from.
//
// Every edge must reference declared nodes; a dangling endpoint is a
// structural error. Roots resolve in order of preference: the explicit Roots
// list, then nodes with no incoming edges, then (for fully cyclic graphs
// where neither exists) every node.
func ToNodes(g Graph) ([]*depgraph.DependencyNode, error) {
	byKey := make(map[string]*depgraph.DependencyNode, len(g.Nodes))
	for _, n := range g.Nodes {
		node := depgraph.NewNode(n.Name, n.Version)
		node.Depth = n.Depth
		node.IsVulnerable = n.Vulnerable
		node.VulnerabilityCount = n.VulnerabilityCount
		node.IsOutdated = n.Outdated
		if err := node.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byKey[node.Key()]; dup {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "duplicate node %q", node.Key())
		}
		byKey[node.Key()] = node
	}

	hasParent := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		from, ok := byKey[e.From]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "edge references unknown node %q", e.From)
		}
		to, ok := byKey[e.To]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "edge references unknown node %q", e.To)
		}
		from.AddChild(to)
		hasParent[e.To] = true
	}

	if len(g.Roots) > 0 {
		roots := make([]*depgraph.DependencyNode, 0, len(g.Roots))
		for _, key := range g.Roots {
			node, ok := byKey[key]
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidGraph, "root references unknown node %q", key)
			}
			roots = append(roots, node)
		}
		return roots, nil
	}

	var rootKeys []string
	for key := range byKey {
		if !hasParent[key] {
			rootKeys = append(rootKeys, key)
		}
	}
	if len(rootKeys) == 0 {
		// Fully cyclic graph: no natural entry point, scan everything.
		for key := range byKey {
			rootKeys = append(rootKeys, key)
		}
	}
	slices.Sort(rootKeys)

	roots := make([]*depgraph.DependencyNode, len(rootKeys))
	for i, key := range rootKeys {
		roots[i] = byKey[key]
	}
	return roots, nil
}

// FromNodes serializes the graph reachable from the given roots.
// The walk is an explicit-queue BFS with visited-set dedup, so shared
// subtrees and cycles are safe. Nodes and edges are sorted for
// deterministic output.
func FromNodes(roots []*depgraph.DependencyNode) (Graph, error) {
	var out Graph
	visited := make(map[string]struct{})

	queue := slices.Clone(roots)
	for _, root := range roots {
		if root == nil {
			return Graph{}, errors.New(errors.ErrCodeInvalidGraph, "nil root node")
		}
		out.Roots = append(out.Roots, root.Key())
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if err := node.Validate(); err != nil {
			return Graph{}, err
		}
		key := node.Key()
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		out.Nodes = append(out.Nodes, Node{
			Name:               node.Name,
			Version:            node.Version,
			Depth:              node.Depth,
			Vulnerable:         node.IsVulnerable,
			VulnerabilityCount: node.VulnerabilityCount,
			Outdated:           node.IsOutdated,
		})
		for _, child := range node.Children {
			out.Edges = append(out.Edges, Edge{From: key, To: child.Key()})
			queue = append(queue, child)
		}
	}

	slices.SortFunc(out.Nodes, func(a, b Node) int {
		return strings.Compare(a.Key(), b.Key())
	})
	slices.SortFunc(out.Edges, func(a, b Edge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	slices.Sort(out.Roots)

	return out, nil
}
