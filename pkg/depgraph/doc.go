// Package depgraph traverses resolved package dependency graphs under hard
// resource bounds.
//
// # Overview
//
// Production dependency graphs are hostile inputs: they nest hundreds of
// levels deep, fan out into thousands of packages, share subtrees between
// parents, and loop back onto themselves. Every walk in this package
// therefore uses an explicit heap-allocated worklist instead of native
// recursion, and every walk is bounded by an injected [Config] snapshot:
// depth, visit count, wall-clock time, heap usage, and cycle count.
//
// Hitting a bound is not a failure. Traversals record warnings (soft
// truncation) and errors (hard stops) in [ProcessingMetrics] and return the
// partial results accumulated so far; the only error value a traversal
// returns is a structurally malformed node.
//
// # Identity
//
// Nodes are identified by their name@version key ([DependencyNode.Key]).
// The same name at two versions is two distinct packages for visiting,
// deduplication, and cycle detection alike.
//
// # Operations
//
// [Traverser.CollectAllPackages] enumerates every reachable package.
// [Traverser.ProcessTreeIteratively] materializes nodes from a raw nested
// description. [Traverser.DetectCycles] runs a standalone white/gray/black
// scan and reports each cycle as a printable path.
// [Traverser.CalculateTransitiveInfo] rolls up the subgraph under one
// dependency.
package depgraph
