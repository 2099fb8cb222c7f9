// Package config loads and validates depsentry settings.
//
// Settings come from three layers, later layers overriding earlier ones:
//
//  1. Built-in defaults
//  2. An optional TOML file (depsentry.toml)
//  3. Environment variables (DEPSENTRY_*), with .env support
//
// The traversal limits are validated here, at startup, against the
// deployment bounds; the traversal engine itself assumes a pre-validated
// snapshot and never re-checks numeric ranges. Violations surface as
// INVALID_CONFIG structured errors naming the offending field.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/depsentry/depsentry/pkg/depgraph"
	"github.com/depsentry/depsentry/pkg/errors"
)

// DefaultFile is the config file consulted when none is given.
const DefaultFile = "depsentry.toml"

// Bounds for traversal limits. A configuration outside these ranges is a
// deployment mistake, rejected at startup.
const (
	MinMaxDepth          = 1
	MaxMaxDepth          = 200
	MinMaxNodes          = 100
	MaxMaxNodes          = 500000
	MinProcessingTime    = time.Minute
	MaxProcessingTime    = time.Hour
	MinMemoryThresholdMB = 16
)

// Settings is the full application configuration.
type Settings struct {
	LogLevel string `toml:"log_level"`

	Traversal TraversalSettings `toml:"traversal"`
	Server    ServerSettings    `toml:"server"`
	Mongo     MongoSettings     `toml:"mongo"`
	Redis     RedisSettings     `toml:"redis"`
}

// TraversalSettings mirrors depgraph.Config in file-friendly units.
type TraversalSettings struct {
	MaxDepth           int `toml:"max_depth"`
	MaxNodes           int `toml:"max_nodes"`
	MaxTransitiveNodes int `toml:"max_transitive_nodes"`
	MaxProcessingMs    int `toml:"max_processing_ms"`
	MaxCircularRefs    int `toml:"max_circular_refs"`
	MemoryInterval     int `toml:"memory_check_interval"`
	MemoryWarningMB    int `toml:"memory_warning_mb"`
	MemoryCriticalMB   int `toml:"memory_critical_mb"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string `toml:"addr"`
}

// MongoSettings configures scan report persistence.
type MongoSettings struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// RedisSettings configures the scan job queue.
type RedisSettings struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	Queue      string `toml:"queue"`
	MaxRetries int    `toml:"max_retries"`
	RetrySecs  int    `toml:"retry_delay_seconds"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	core := depgraph.DefaultConfig()
	return Settings{
		LogLevel: "info",
		Traversal: TraversalSettings{
			MaxDepth:           core.MaxDepth,
			MaxNodes:           core.MaxNodes,
			MaxTransitiveNodes: core.MaxTransitiveNodes,
			MaxProcessingMs:    int(core.MaxProcessingTime / time.Millisecond),
			MaxCircularRefs:    core.MaxCircularRefs,
			MemoryInterval:     core.MemoryInterval,
			MemoryWarningMB:    int(core.MemoryWarningMB),
			MemoryCriticalMB:   int(core.MemoryCriticalMB),
		},
		Server: ServerSettings{Addr: ":8080"},
		Mongo: MongoSettings{
			URI:      "mongodb://localhost:27017",
			Database: "dependency-manager",
		},
		Redis: RedisSettings{
			Addr:       "localhost:6379",
			Queue:      "depsentry:scans",
			MaxRetries: 3,
			RetrySecs:  2,
		},
	}
}

// Load builds Settings from defaults, the given TOML file (or DefaultFile if
// path is empty; a missing default file is not an error), and environment
// variables, then validates the result.
func Load(path string) (Settings, error) {
	// Best-effort: a missing .env file is the normal case.
	_ = godotenv.Load()

	s := Defaults()

	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &s); err != nil {
			return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	} else if explicit {
		return Settings{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
	}

	applyEnv(&s)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnv overlays DEPSENTRY_* environment variables.
func applyEnv(s *Settings) {
	envString(&s.LogLevel, "DEPSENTRY_LOG_LEVEL")

	envInt(&s.Traversal.MaxDepth, "DEPSENTRY_MAX_DEPTH")
	envInt(&s.Traversal.MaxNodes, "DEPSENTRY_MAX_NODES")
	envInt(&s.Traversal.MaxTransitiveNodes, "DEPSENTRY_MAX_TRANSITIVE_NODES")
	envInt(&s.Traversal.MaxProcessingMs, "DEPSENTRY_MAX_PROCESSING_MS")
	envInt(&s.Traversal.MaxCircularRefs, "DEPSENTRY_MAX_CIRCULAR_REFS")
	envInt(&s.Traversal.MemoryInterval, "DEPSENTRY_MEMORY_CHECK_INTERVAL")
	envInt(&s.Traversal.MemoryWarningMB, "DEPSENTRY_MEMORY_WARNING_MB")
	envInt(&s.Traversal.MemoryCriticalMB, "DEPSENTRY_MEMORY_CRITICAL_MB")

	envString(&s.Server.Addr, "DEPSENTRY_HTTP_ADDR")
	envString(&s.Mongo.URI, "DEPSENTRY_MONGODB_URI")
	envString(&s.Mongo.Database, "DEPSENTRY_MONGODB_DATABASE")
	envString(&s.Redis.Addr, "DEPSENTRY_REDIS_ADDR")
	envString(&s.Redis.Password, "DEPSENTRY_REDIS_PASSWORD")
	envString(&s.Redis.Queue, "DEPSENTRY_QUEUE_NAME")
	envInt(&s.Redis.MaxRetries, "DEPSENTRY_MAX_RETRIES")
	envInt(&s.Redis.RetrySecs, "DEPSENTRY_RETRY_DELAY_SECONDS")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate enforces the deployment bounds on traversal limits and the
// structural requirements of the backend settings.
func (s Settings) Validate() error {
	tv := s.Traversal
	if tv.MaxDepth < MinMaxDepth || tv.MaxDepth > MaxMaxDepth {
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_depth %d out of range [%d, %d]", tv.MaxDepth, MinMaxDepth, MaxMaxDepth)
	}
	if tv.MaxNodes < MinMaxNodes || tv.MaxNodes > MaxMaxNodes {
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_nodes %d out of range [%d, %d]", tv.MaxNodes, MinMaxNodes, MaxMaxNodes)
	}
	procTime := time.Duration(tv.MaxProcessingMs) * time.Millisecond
	if procTime < MinProcessingTime || procTime > MaxProcessingTime {
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_processing_ms %d out of range [%d, %d]",
			tv.MaxProcessingMs, MinProcessingTime.Milliseconds(), MaxProcessingTime.Milliseconds())
	}
	if tv.MaxCircularRefs <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_circular_refs must be positive, got %d", tv.MaxCircularRefs)
	}
	if tv.MaxTransitiveNodes <= 0 || tv.MaxTransitiveNodes > tv.MaxNodes {
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_transitive_nodes %d must be positive and at most max_nodes (%d)",
			tv.MaxTransitiveNodes, tv.MaxNodes)
	}
	if tv.MemoryInterval <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"memory_check_interval must be positive, got %d", tv.MemoryInterval)
	}
	if tv.MemoryWarningMB < MinMemoryThresholdMB {
		return errors.New(errors.ErrCodeInvalidConfig,
			"memory_warning_mb must be at least %d, got %d", MinMemoryThresholdMB, tv.MemoryWarningMB)
	}
	if tv.MemoryWarningMB >= tv.MemoryCriticalMB {
		return errors.New(errors.ErrCodeInvalidConfig,
			"memory_warning_mb (%d) must be below memory_critical_mb (%d)",
			tv.MemoryWarningMB, tv.MemoryCriticalMB)
	}

	if s.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "server addr cannot be empty")
	}
	if s.Mongo.URI == "" || s.Mongo.Database == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "mongo uri and database are required")
	}
	if s.Redis.Addr == "" || s.Redis.Queue == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "redis addr and queue are required")
	}
	if s.Redis.MaxRetries < 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"max_retries cannot be negative, got %d", s.Redis.MaxRetries)
	}
	return nil
}

// TraversalConfig converts the validated settings into the engine's
// injected limit snapshot.
func (s Settings) TraversalConfig() depgraph.Config {
	tv := s.Traversal
	return depgraph.Config{
		MaxDepth:           tv.MaxDepth,
		MaxNodes:           tv.MaxNodes,
		MaxTransitiveNodes: tv.MaxTransitiveNodes,
		MaxProcessingTime:  time.Duration(tv.MaxProcessingMs) * time.Millisecond,
		MaxCircularRefs:    tv.MaxCircularRefs,
		MemoryInterval:     tv.MemoryInterval,
		MemoryWarningMB:    float64(tv.MemoryWarningMB),
		MemoryCriticalMB:   float64(tv.MemoryCriticalMB),
	}
}

// RetryDelay returns the queue retry delay as a duration.
func (s Settings) RetryDelay() time.Duration {
	return time.Duration(s.Redis.RetrySecs) * time.Second
}
