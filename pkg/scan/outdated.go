package scan

import (
	"github.com/Masterminds/semver/v3"

	"github.com/depsentry/depsentry/pkg/depgraph"
)

// Outdated reports whether current lags behind latest.
//
// Both versions are parsed as semver (tolerating "v" prefixes and partial
// versions like "1.2"). Resolved versions are not guaranteed to be semver
// ("unknown" is legal), so when either side fails to parse the comparison
// falls back to plain string inequality. An empty latest means nothing is
// known about newer releases and never marks a package outdated.
func Outdated(current, latest string) bool {
	if latest == "" || current == latest {
		return false
	}

	cur, errCur := semver.NewVersion(current)
	lat, errLat := semver.NewVersion(latest)
	if errCur != nil || errLat != nil {
		return current != latest
	}
	return cur.LessThan(lat)
}

// MarkOutdated sets the node's outdated flag from the known latest version.
// Classification happens at graph-construction time, never inside traversal:
// the traverser treats the flag as an opaque read-only payload.
func MarkOutdated(node *depgraph.DependencyNode, latest string) {
	if node == nil {
		return
	}
	node.IsOutdated = Outdated(node.Version, latest)
}
