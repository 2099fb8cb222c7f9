package depgraph

import (
	"slices"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/observability"
)

// Traversal operation names reported through observability hooks.
const (
	opCollect    = "collect"
	opTree       = "tree"
	opCycles     = "cycles"
	opTransitive = "transitive"
)

// Traverser walks resolved dependency graphs under hard bounds on depth,
// node count, wall-clock time, memory, and cycle count.
//
// All walks use explicit heap-allocated worklists, never native recursion:
// real package graphs nest far deeper than a call stack tolerates, and are
// frequently cyclic. Bounded conditions (cycle found, any limit hit) are
// recorded in the metrics and never returned as errors; the only error a
// traversal returns is a malformed node, which indicates a broken upstream
// contract.
//
// A Traverser holds visited-set and metrics state for exactly one traversal
// call. State is reset at the start of each public entry point, so a single
// instance can be reused for sequential calls. It is not safe for concurrent
// use; callers wanting parallel scans run independent instances.
type Traverser struct {
	cfg Config

	visited  map[string]struct{}
	circular []string
	metrics  ProcessingMetrics
	start    time.Time
}

// New creates a Traverser with the given limit snapshot.
// Zero fields in cfg are replaced by defaults.
func New(cfg Config) *Traverser {
	return &Traverser{cfg: cfg.WithDefaults()}
}

// Metrics returns the snapshot describing the most recent traversal.
func (t *Traverser) Metrics() ProcessingMetrics {
	return t.metrics
}

// CircularDependencies returns the cycle paths recorded by the most recent
// traversal, each a "→"-joined sequence of name@version tokens. The returned
// slice is a copy.
func (t *Traverser) CircularDependencies() []string {
	return slices.Clone(t.circular)
}

// reset clears per-call state. Every public entry point calls this first.
func (t *Traverser) reset() {
	t.visited = make(map[string]struct{})
	t.circular = nil
	t.metrics = ProcessingMetrics{}
	t.start = time.Now()
}

// frame is one unit of pending work on the explicit DFS stack.
// path holds the name@version keys of the ancestors on the currently-open
// route to the node, headed by the synthetic root marker.
type frame struct {
	node  *DependencyNode
	depth int
	path  []string
}

// CollectAllPackages enumerates every distinct package reachable from the
// root set, immune to cycles and pathological depth or fan-out.
//
// maxDepth and maxNodes override the configured limits when positive; pass 0
// to use the config values. Traversal order is depth-first by construction,
// but callers must rely only on membership and counts, never on order.
//
// A traversal stopped by a limit returns the packages accumulated so far;
// inspect Metrics to distinguish a truncated result from a complete one.
// The only error returned is a structurally malformed node.
func (t *Traverser) CollectAllPackages(roots []*DependencyNode, maxDepth, maxNodes int) ([]PackageRef, error) {
	t.reset()
	if maxDepth <= 0 {
		maxDepth = t.cfg.MaxDepth
	}
	if maxNodes <= 0 {
		maxNodes = t.cfg.MaxNodes
	}

	hooks := observability.Traversal()
	hooks.OnTraversalStart(opCollect, len(roots))
	defer func() {
		t.metrics.finalize(t.start)
		hooks.OnTraversalComplete(opCollect, t.metrics.TotalNodes, t.metrics.ProcessingTime)
	}()

	stack := make([]frame, 0, len(roots))
	for _, root := range roots {
		stack = append(stack, frame{node: root, depth: 1, path: []string{RootPathMarker}})
	}

	var result []PackageRef
	collected := make(map[string]struct{})

	for len(stack) > 0 && t.metrics.TotalNodes < maxNodes {
		if t.overTimeBudget(hooks) || t.overMemoryBudget(hooks) {
			return result, nil
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := f.node.Validate(); err != nil {
			return result, err
		}

		key := f.node.Key()
		t.metrics.TotalNodes++
		if f.depth > t.metrics.MaxDepth {
			t.metrics.MaxDepth = f.depth
		}
		hooks.OnNodeVisited(key, f.depth)

		if _, seen := t.visited[key]; seen {
			// An ancestor on the currently-open path means a genuine
			// back-edge. A previously-visited key reached via a different
			// route is diamond re-convergence: skip silently, no cycle.
			if slices.Contains(f.path, key) {
				t.recordCycle(append(slices.Clone(f.path), key), hooks)
				if t.metrics.CircularReferences > t.cfg.MaxCircularRefs {
					t.metrics.ErrorsCount++
					hooks.OnLimitReached("cycles", t.metrics.CircularReferences)
					return result, nil
				}
			}
			continue
		}
		t.visited[key] = struct{}{}

		if _, dup := collected[key]; !dup {
			collected[key] = struct{}{}
			result = append(result, PackageRef{Name: f.node.Name, Version: f.node.Version})
			t.metrics.UniquePackages++
		}

		if f.depth >= maxDepth {
			if len(f.node.Children) > 0 {
				t.metrics.WarningsCount++
				hooks.OnLimitReached("depth", f.depth)
			}
			continue
		}

		childPath := append(slices.Clone(f.path), key)
		for _, child := range f.node.Children {
			stack = append(stack, frame{node: child, depth: f.depth + 1, path: childPath})
		}
	}

	if len(stack) > 0 && t.metrics.TotalNodes >= maxNodes {
		t.metrics.ErrorsCount++
		hooks.OnLimitReached("nodes", t.metrics.TotalNodes)
	}
	return result, nil
}

// treeItem is one unit of pending work on the explicit BFS queue used by
// ProcessTreeIteratively.
type treeItem struct {
	name   string
	raw    RawDependency
	depth  int
	parent *DependencyNode
}

// ProcessTreeIteratively builds a fresh node map from a raw nested mapping,
// breadth-first with an explicit queue. Used when the input is a flat
// description (lock-file export, API payload) rather than pre-built nodes.
//
// Parent-child edges are attached as each child is first discovered; a child
// reached again from a different parent is neither re-attached nor traversed
// again (first discovery wins). The same identity key, node-count and time
// limits apply as in CollectAllPackages.
func (t *Traverser) ProcessTreeIteratively(tree map[string]RawDependency, maxNodes, startDepth int) (map[string]*DependencyNode, error) {
	t.reset()
	if maxNodes <= 0 {
		maxNodes = t.cfg.MaxNodes
	}
	if startDepth <= 0 {
		startDepth = 1
	}

	hooks := observability.Traversal()
	hooks.OnTraversalStart(opTree, len(tree))
	defer func() {
		t.metrics.finalize(t.start)
		hooks.OnTraversalComplete(opTree, t.metrics.TotalNodes, t.metrics.ProcessingTime)
	}()

	queue := make([]treeItem, 0, len(tree))
	for name, raw := range tree {
		queue = append(queue, treeItem{name: name, raw: raw, depth: startDepth})
	}

	nodes := make(map[string]*DependencyNode)

	for len(queue) > 0 && t.metrics.TotalNodes < maxNodes {
		if t.overTimeBudget(hooks) || t.overMemoryBudget(hooks) {
			return nodes, nil
		}

		item := queue[0]
		queue = queue[1:]

		if err := errors.ValidatePackageName(item.name); err != nil {
			return nodes, err
		}
		if err := errors.ValidateVersion(item.raw.Version); err != nil {
			return nodes, errors.Wrap(errors.ErrCodeInvalidNode, err, "node %q", item.name)
		}

		key := item.name + KeySeparator + item.raw.Version
		t.metrics.TotalNodes++
		if item.depth > t.metrics.MaxDepth {
			t.metrics.MaxDepth = item.depth
		}
		hooks.OnNodeVisited(key, item.depth)

		if _, seen := nodes[key]; seen {
			continue
		}

		node := &DependencyNode{
			Name:               item.name,
			Version:            item.raw.Version,
			Depth:              item.depth,
			Children:           make(map[string]*DependencyNode),
			IsVulnerable:       item.raw.IsVulnerable,
			VulnerabilityCount: item.raw.VulnerabilityCount,
			IsOutdated:         item.raw.IsOutdated,
		}
		nodes[key] = node
		t.metrics.UniquePackages++
		if item.parent != nil {
			item.parent.AddChild(node)
		}

		for childName, childRaw := range item.raw.Children {
			queue = append(queue, treeItem{name: childName, raw: childRaw, depth: item.depth + 1, parent: node})
		}
	}

	if len(queue) > 0 && t.metrics.TotalNodes >= maxNodes {
		t.metrics.ErrorsCount++
		hooks.OnLimitReached("nodes", t.metrics.TotalNodes)
	}
	return nodes, nil
}

// Colors for the standalone cycle scan.
const (
	colorWhite = iota // unvisited
	colorGray         // on the currently-open DFS path
	colorBlack        // fully processed
)

// cycleFrame drives the iterative color-marking DFS. A node is pushed twice:
// once to enter (mark gray, push children) and once to exit (mark black).
type cycleFrame struct {
	node *DependencyNode
	exit bool
}

// DetectCycles runs a standalone white/gray/black depth-first scan over the
// graph and returns every cycle as a "→"-joined path from the re-encountered
// node, through the open chain, back to itself.
//
// Unlike the textbook recursive formulation, the scan carries its own
// explicit stack, so it is safe on production-scale graphs of unbounded
// depth. It shares no state with the collect pass and ignores the node and
// time limits: it is a diagnostic, and its work is bounded by the number of
// edges.
func (t *Traverser) DetectCycles(roots []*DependencyNode) []string {
	hooks := observability.Traversal()
	hooks.OnTraversalStart(opCycles, len(roots))
	start := time.Now()

	color := make(map[string]int)
	var pathStack []string
	var cycles []string
	visits := 0

	for _, root := range roots {
		if root == nil || color[root.Key()] != colorWhite {
			continue
		}

		stack := []cycleFrame{{node: root}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			key := f.node.Key()
			if f.exit {
				color[key] = colorBlack
				pathStack = pathStack[:len(pathStack)-1]
				continue
			}
			if color[key] != colorWhite {
				continue
			}

			color[key] = colorGray
			pathStack = append(pathStack, key)
			stack = append(stack, cycleFrame{node: f.node, exit: true})
			visits++

			for _, child := range f.node.Children {
				switch color[child.Key()] {
				case colorWhite:
					stack = append(stack, cycleFrame{node: child})
				case colorGray:
					cycle := closeCycle(pathStack, child.Key())
					cycles = append(cycles, cycle)
					hooks.OnCycleDetected(cycle)
				}
			}
		}
	}

	hooks.OnTraversalComplete(opCycles, visits, time.Since(start))
	return cycles
}

// closeCycle renders the path from the gray node's position on the open
// chain back to itself.
func closeCycle(pathStack []string, grayKey string) string {
	i := slices.Index(pathStack, grayKey)
	if i < 0 {
		i = 0
	}
	segment := append(slices.Clone(pathStack[i:]), grayKey)
	return strings.Join(segment, " → ")
}

// TransitiveInfo aggregates the subgraph reachable from a single dependency.
type TransitiveInfo struct {
	Count           int `json:"count" bson:"count"`                       // Distinct transitive packages (excluding the node itself)
	VulnerableCount int `json:"vulnerable_count" bson:"vulnerable_count"` // Summed vulnerability counts over flagged nodes
	OutdatedCount   int `json:"outdated_count" bson:"outdated_count"`     // Nodes flagged outdated
}

// CalculateTransitiveInfo walks the subgraph under node with an explicit
// stack and returns its rollup counts.
//
// The walk always allocates its own visited set: a package shared across
// multiple direct dependencies must contribute to each of their rollups, so
// the collect pass's global visited set is never reused here. The visit cap
// is MaxTransitiveNodes, deliberately smaller than the full-traversal cap
// since this runs once per top-level dependency.
func (t *Traverser) CalculateTransitiveInfo(node *DependencyNode) (TransitiveInfo, error) {
	var info TransitiveInfo
	if err := node.Validate(); err != nil {
		return info, err
	}

	hooks := observability.Traversal()
	hooks.OnTraversalStart(opTransitive, 1)
	start := time.Now()

	visited := map[string]struct{}{node.Key(): {}}
	stack := make([]*DependencyNode, 0, len(node.Children))
	for _, child := range node.Children {
		stack = append(stack, child)
	}

	visits := 0
	for len(stack) > 0 && visits < t.cfg.MaxTransitiveNodes {
		if time.Since(start) > t.cfg.MaxProcessingTime {
			hooks.OnLimitReached("time", int(time.Since(start).Milliseconds()))
			break
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visits++

		if err := n.Validate(); err != nil {
			return info, err
		}

		key := n.Key()
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		info.Count++
		if n.IsVulnerable {
			info.VulnerableCount += n.VulnerabilityCount
		}
		if n.IsOutdated {
			info.OutdatedCount++
		}

		for _, child := range n.Children {
			stack = append(stack, child)
		}
	}

	if len(stack) > 0 && visits >= t.cfg.MaxTransitiveNodes {
		hooks.OnLimitReached("nodes", visits)
	}

	hooks.OnTraversalComplete(opTransitive, visits, time.Since(start))
	return info, nil
}

// recordCycle appends a closed cycle path and bumps the counter.
func (t *Traverser) recordCycle(path []string, hooks observability.TraversalHooks) {
	cycle := strings.Join(path, " → ")
	t.circular = append(t.circular, cycle)
	t.metrics.CircularReferences++
	hooks.OnCycleDetected(cycle)
}

// overTimeBudget re-checks elapsed wall-clock time against the processing
// budget. Checked before each pop, so the worst-case overrun is one node's
// worth of work.
func (t *Traverser) overTimeBudget(hooks observability.TraversalHooks) bool {
	elapsed := time.Since(t.start)
	if elapsed <= t.cfg.MaxProcessingTime {
		return false
	}
	t.metrics.ErrorsCount++
	hooks.OnLimitReached("time", int(elapsed.Milliseconds()))
	return true
}

// overMemoryBudget samples heap usage every MemoryInterval processed nodes.
// Crossing the warning threshold counts a warning and continues; crossing
// the critical threshold stops the traversal.
func (t *Traverser) overMemoryBudget(hooks observability.TraversalHooks) bool {
	if t.metrics.TotalNodes == 0 || t.metrics.TotalNodes%t.cfg.MemoryInterval != 0 {
		return false
	}
	usage := memoryUsageMB()
	if usage >= t.cfg.MemoryCriticalMB {
		t.metrics.ErrorsCount++
		hooks.OnLimitReached("memory", int(usage))
		return true
	}
	if usage >= t.cfg.MemoryWarningMB {
		t.metrics.WarningsCount++
	}
	return false
}
