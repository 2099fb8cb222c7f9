package depgraph

import "time"

// Default limits applied by [Config.WithDefaults] when a field is zero.
// All defaults sit inside the ranges enforced by the configuration loader.
const (
	DefaultMaxDepth           = 50               // Maximum traversal depth
	DefaultMaxNodes           = 10000            // Maximum graph visits per traversal
	DefaultMaxTransitiveNodes = 2000             // Per-dependency rollup visit cap
	DefaultMaxProcessingTime  = 5 * time.Minute  // Wall-clock budget per traversal
	DefaultMaxCircularRefs    = 50               // Cycle count that aborts a traversal
	DefaultMemoryInterval     = 1000             // Nodes between memory samples
	DefaultMemoryWarningMB    = 512              // Soft memory threshold
	DefaultMemoryCriticalMB   = 1024             // Hard memory threshold
)

// Config carries the numeric limits for one traverser. It is an explicit
// snapshot passed into construction, never a process-global: independent
// traversers with independent configs are safe to run concurrently.
//
// The traverser assumes the snapshot was validated by the configuration
// loader (bounds per the deployment contract); it only checks structural
// validity of nodes, not numeric ranges.
type Config struct {
	MaxDepth           int           // Deepest level expanded (children beyond it are truncated)
	MaxNodes           int           // Visits before a traversal hard-stops
	MaxTransitiveNodes int           // Visit cap for per-dependency rollups
	MaxProcessingTime  time.Duration // Wall-clock budget, polled before each pop
	MaxCircularRefs    int           // Detected cycles before a traversal hard-stops
	MemoryInterval     int           // Processed-node interval between memory samples
	MemoryWarningMB    float64       // Soft threshold: counted as a warning, traversal continues
	MemoryCriticalMB   float64       // Hard threshold: traversal stops with partial results
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of the config with zero fields replaced by
// defaults. Mirrors how resolver options are defaulted elsewhere: callers
// set only what they care about.
func (c Config) WithDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxTransitiveNodes <= 0 {
		c.MaxTransitiveNodes = DefaultMaxTransitiveNodes
	}
	if c.MaxProcessingTime <= 0 {
		c.MaxProcessingTime = DefaultMaxProcessingTime
	}
	if c.MaxCircularRefs <= 0 {
		c.MaxCircularRefs = DefaultMaxCircularRefs
	}
	if c.MemoryInterval <= 0 {
		c.MemoryInterval = DefaultMemoryInterval
	}
	if c.MemoryWarningMB <= 0 {
		c.MemoryWarningMB = DefaultMemoryWarningMB
	}
	if c.MemoryCriticalMB <= 0 {
		c.MemoryCriticalMB = DefaultMemoryCriticalMB
	}
	return c
}
