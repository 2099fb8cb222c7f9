package depgraph

import (
	"runtime"
	"time"
)

// ProcessingMetrics is the immutable snapshot describing one traversal.
//
// TotalNodes counts graph visits, not unique packages: a node reached via
// multiple paths is expanded once but every re-encounter still counts as a
// visit before being short-circuited. UniquePackages counts distinct
// name@version keys.
//
// WarningsCount records soft conditions (depth-limit truncation, memory
// above the warning threshold). ErrorsCount records hard stop conditions
// (timeout, node limit, memory critical, too many cycles). Neither is a
// failure: a traversal that stopped early still returns valid partial
// results, distinguishable by ErrorsCount > 0.
type ProcessingMetrics struct {
	TotalNodes         int           `json:"total_nodes" bson:"total_nodes"`
	UniquePackages     int           `json:"unique_packages" bson:"unique_packages"`
	MaxDepth           int           `json:"max_depth" bson:"max_depth"`
	CircularReferences int           `json:"circular_references" bson:"circular_references"`
	ProcessingTime     time.Duration `json:"-" bson:"-"`
	ProcessingTimeMs   int64         `json:"processing_time_ms" bson:"processing_time_ms"`
	MemoryUsageMB      float64       `json:"memory_usage_mb" bson:"memory_usage_mb"`
	WarningsCount      int           `json:"warnings_count" bson:"warnings_count"`
	ErrorsCount        int           `json:"errors_count" bson:"errors_count"`
}

// finalize stamps the elapsed time and current memory usage onto the
// snapshot. Called once at the end of each public entry point.
func (m *ProcessingMetrics) finalize(start time.Time) {
	m.ProcessingTime = time.Since(start)
	m.ProcessingTimeMs = m.ProcessingTime.Milliseconds()
	m.MemoryUsageMB = memoryUsageMB()
}

// memoryUsageMB samples the current heap allocation in megabytes.
// ReadMemStats is cheap enough to poll at the configured node interval;
// it is never called per node.
func memoryUsageMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1024 * 1024)
}
