// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about traversals, scan storage, and queue
// processing.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the engine dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTraversalHooks(&myTraversalHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Traversal().OnTraversalStart(op, len(roots))
//	// ... walk the graph ...
//	observability.Traversal().OnTraversalComplete(op, visits, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Traversal Hooks
// =============================================================================

// TraversalHooks receives events from the graph traversal engine.
type TraversalHooks interface {
	// OnTraversalStart records the beginning of a traversal operation
	// ("collect", "tree", "cycles", "transitive") over rootCount roots.
	OnTraversalStart(op string, rootCount int)

	// OnTraversalComplete records the end of a traversal with the number
	// of graph visits performed and the elapsed wall-clock time.
	OnTraversalComplete(op string, visits int, duration time.Duration)

	// OnNodeVisited records a single graph visit at the given depth.
	// Called on every pop, so implementations must be cheap.
	OnNodeVisited(key string, depth int)

	// OnCycleDetected records a closed cycle path.
	OnCycleDetected(path string)

	// OnLimitReached records a bounded stop condition ("time", "nodes",
	// "memory", "cycles", "depth") and the value that tripped it.
	OnLimitReached(limit string, value int)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from scan persistence operations.
type StoreHooks interface {
	// OnSave records a scan document write.
	OnSave(ctx context.Context, scanID string, duration time.Duration, err error)

	// OnLoad records a scan document read.
	OnLoad(ctx context.Context, scanID string, duration time.Duration, err error)
}

// =============================================================================
// Queue Hooks
// =============================================================================

// QueueHooks receives events from scan job queue processing.
type QueueHooks interface {
	// OnJobReceived records a job dequeued for processing.
	OnJobReceived(ctx context.Context, jobID string)

	// OnJobProcessed records a completed job and its outcome.
	OnJobProcessed(ctx context.Context, jobID string, duration time.Duration, err error)

	// OnJobRequeued records a failed job pushed back for retry.
	OnJobRequeued(ctx context.Context, jobID string, attempt int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTraversalHooks is a no-op implementation of TraversalHooks.
type NoopTraversalHooks struct{}

func (NoopTraversalHooks) OnTraversalStart(string, int)                   {}
func (NoopTraversalHooks) OnTraversalComplete(string, int, time.Duration) {}
func (NoopTraversalHooks) OnNodeVisited(string, int)                      {}
func (NoopTraversalHooks) OnCycleDetected(string)                         {}
func (NoopTraversalHooks) OnLimitReached(string, int)                     {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnSave(context.Context, string, time.Duration, error) {}
func (NoopStoreHooks) OnLoad(context.Context, string, time.Duration, error) {}

// NoopQueueHooks is a no-op implementation of QueueHooks.
type NoopQueueHooks struct{}

func (NoopQueueHooks) OnJobReceived(context.Context, string)                        {}
func (NoopQueueHooks) OnJobProcessed(context.Context, string, time.Duration, error) {}
func (NoopQueueHooks) OnJobRequeued(context.Context, string, int)                   {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	traversalHooks TraversalHooks = NoopTraversalHooks{}
	storeHooks     StoreHooks     = NoopStoreHooks{}
	queueHooks     QueueHooks     = NoopQueueHooks{}
	hooksMu        sync.RWMutex
)

// SetTraversalHooks registers custom traversal hooks.
// This should be called once at application startup before any traversals.
func SetTraversalHooks(h TraversalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		traversalHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetQueueHooks registers custom queue hooks.
// This should be called once at application startup before any queue operations.
func SetQueueHooks(h QueueHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		queueHooks = h
	}
}

// Traversal returns the registered traversal hooks.
func Traversal() TraversalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return traversalHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Queue returns the registered queue hooks.
func Queue() QueueHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return queueHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	traversalHooks = NoopTraversalHooks{}
	storeHooks = NoopStoreHooks{}
	queueHooks = NoopQueueHooks{}
}
