package depgraph

import (
	"github.com/depsentry/depsentry/pkg/errors"
)

// KeySeparator joins a package name and resolved version into an identity key.
// Two nodes are the same logical package instance iff their keys match.
const KeySeparator = "@"

// RootPathMarker is the synthetic ancestor placed at the head of every
// traversal path so that cycle strings always show where a walk started.
const RootPathMarker = "root"

// DependencyNode is a vertex in a resolved package dependency graph.
//
// The structure is a graph, not a tree: a node may appear as a child of
// multiple parents, and child chains may loop back onto ancestors. The
// traverser never mutates nodes; it only reads them.
//
// Depth is advisory. Whatever resolver built the graph may record the depth
// at which it discovered the node, but the traverser recomputes depth itself
// and does not trust this field.
type DependencyNode struct {
	Name     string                     // Package identifier (non-empty)
	Version  string                     // Resolved version, possibly non-semver (e.g. "unknown")
	Depth    int                        // Advisory depth set by the graph builder
	Children map[string]*DependencyNode // Child name -> child node

	// Vulnerability/outdated payload, populated at graph-construction time
	// and read-only during traversal. Used for aggregate rollups only.
	IsVulnerable       bool
	VulnerabilityCount int
	IsOutdated         bool
}

// NewNode creates a node with an initialized child map.
func NewNode(name, version string) *DependencyNode {
	return &DependencyNode{
		Name:     name,
		Version:  version,
		Children: make(map[string]*DependencyNode),
	}
}

// AddChild attaches child under its package name.
// The child map is created lazily so zero-value nodes stay usable.
func (n *DependencyNode) AddChild(child *DependencyNode) {
	if n.Children == nil {
		n.Children = make(map[string]*DependencyNode)
	}
	n.Children[child.Name] = child
}

// Key returns the name@version identity key. This composite key is the only
// identity used for visited-set membership, cycle detection and dedup;
// different versions of the same name are distinct entities.
func (n *DependencyNode) Key() string {
	return n.Name + KeySeparator + n.Version
}

// Validate checks the structural contract of a node: a well-formed name and
// a non-empty version. A violation means the upstream graph builder is
// broken, so traversal fails fast rather than corrupting identity keys.
func (n *DependencyNode) Validate() error {
	if n == nil {
		return errors.New(errors.ErrCodeInvalidNode, "nil dependency node")
	}
	if err := errors.ValidatePackageName(n.Name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidNode, err, "node %q", n.Name+KeySeparator+n.Version)
	}
	if err := errors.ValidateVersion(n.Version); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidNode, err, "node %q", n.Name+KeySeparator+n.Version)
	}
	return nil
}

// PackageRef is a (name, version) pair collected during traversal.
type PackageRef struct {
	Name    string `json:"name" bson:"name"`
	Version string `json:"version" bson:"version"`
}

// Key returns the name@version identity key for the reference.
func (r PackageRef) Key() string {
	return r.Name + KeySeparator + r.Version
}

// RawDependency is the flat, already-deduplicated description consumed by
// [Traverser.ProcessTreeIteratively]: the shape a lock-file exporter or API
// payload provides before any node objects exist.
type RawDependency struct {
	Version            string                   `json:"version"`
	Children           map[string]RawDependency `json:"children,omitempty"`
	IsVulnerable       bool                     `json:"vulnerable,omitempty"`
	VulnerabilityCount int                      `json:"vulnerability_count,omitempty"`
	IsOutdated         bool                     `json:"outdated,omitempty"`
}
