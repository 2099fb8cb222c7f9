// Package redisq implements the scan job queue on Redis.
//
// Jobs are JSON documents on a Redis list: producers LPUSH, the consumer
// BRPOPs. Failed jobs are re-enqueued with an incremented attempt counter
// until MaxRetries is exhausted, mirroring broker nack/requeue semantics
// without a dedicated broker.
package redisq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/graphio"
)

// popTimeout is the BRPOP block interval. Short enough that consumer
// shutdown is responsive, long enough to avoid busy-polling.
const popTimeout = 5 * time.Second

// Config holds the queue connection settings.
type Config struct {
	Addr       string        // Redis address, e.g. "localhost:6379"
	Password   string        // Optional auth
	Queue      string        // List key, e.g. "depsentry:scans"
	MaxRetries int           // Re-enqueue budget per job
	RetryDelay time.Duration // Pause after connection errors
}

// Job is one scan request travelling through the queue.
type Job struct {
	ID         string        `json:"id"`
	Repository string        `json:"repository"`
	Graph      graphio.Graph `json:"graph"`
	Attempt    int           `json:"attempt,omitempty"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// Handler processes one dequeued job. A returned error re-enqueues the job
// until its retry budget runs out.
type Handler func(ctx context.Context, job Job) error

// Queue is a Redis-list-backed scan job queue.
type Queue struct {
	client *redis.Client
	cfg    Config
	logger *log.Logger
}

// New creates a Queue. The connection is established lazily; use Ping to
// verify reachability at startup.
func New(cfg Config, logger *log.Logger) *Queue {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	return &Queue{client: client, cfg: cfg, logger: logger}
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueue, err, "encode job %s", job.ID)
	}
	if err := q.client.LPush(ctx, q.cfg.Queue, payload).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueue, err, "enqueue job %s", job.ID)
	}
	return nil
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.cfg.Queue).Result()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueue, err, "queue depth")
	}
	return n, nil
}

// Ping verifies connectivity for health checks.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueue, err, "ping")
	}
	return nil
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}
