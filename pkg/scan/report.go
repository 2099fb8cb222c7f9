package scan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/depsentry/depsentry/pkg/depgraph"
)

// Status describes how a scan finished.
type Status string

const (
	// StatusCompleted means the traversal covered the whole graph.
	StatusCompleted Status = "completed"
	// StatusPartial means a configured limit truncated the traversal;
	// the report holds valid partial results.
	StatusPartial Status = "partial"
	// StatusFailed means a structural error aborted the scan.
	StatusFailed Status = "failed"
)

// Dependency is the per-root entry of a report: one direct dependency of the
// scanned repository together with its transitive rollup.
type Dependency struct {
	Name               string                  `json:"name" bson:"name"`
	Version            string                  `json:"version" bson:"version"`
	Vulnerable         bool                    `json:"vulnerable,omitempty" bson:"vulnerable,omitempty"`
	VulnerabilityCount int                     `json:"vulnerability_count,omitempty" bson:"vulnerability_count,omitempty"`
	Outdated           bool                    `json:"outdated,omitempty" bson:"outdated,omitempty"`
	Transitive         depgraph.TransitiveInfo `json:"transitive" bson:"transitive"`
}

// Report is the persisted outcome of scanning one repository's dependency
// graph. It is what the API returns and the Mongo scans collection stores.
type Report struct {
	ID           string                     `json:"id" bson:"_id"`
	Repository   string                     `json:"repository" bson:"repository"`
	Status       Status                     `json:"status" bson:"status"`
	CreatedAt    time.Time                  `json:"created_at" bson:"created_at"`
	CompletedAt  time.Time                  `json:"completed_at" bson:"completed_at"`
	Dependencies []Dependency               `json:"dependencies" bson:"dependencies"`
	Packages     []depgraph.PackageRef      `json:"packages" bson:"packages"`
	Cycles       []string                   `json:"cycles,omitempty" bson:"cycles,omitempty"`
	Metrics      depgraph.ProcessingMetrics `json:"metrics" bson:"metrics"`
}

// NewReportID returns a fresh scan document identifier.
func NewReportID() string {
	return uuid.NewString()
}

// Store persists scan reports. The canonical implementation is
// store/mongo; tests use an in-memory fake.
type Store interface {
	// Save writes a report, overwriting any document with the same ID.
	Save(ctx context.Context, r *Report) error

	// Get retrieves a report by ID. Returns a SCAN_NOT_FOUND structured
	// error if no document exists.
	Get(ctx context.Context, id string) (*Report, error)

	// List returns the most recent reports for a repository, newest
	// first. An empty repository lists across all repositories.
	List(ctx context.Context, repository string, limit int) ([]*Report, error)

	// Ping verifies connectivity for health checks.
	Ping(ctx context.Context) error
}
