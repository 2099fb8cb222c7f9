package redisq

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/depsentry/depsentry/pkg/observability"
)

// Consumer pulls jobs off a Queue and hands them to a Handler.
// One consumer processes one job at a time; run several consumers for
// parallelism, they share the list safely.
type Consumer struct {
	queue   *Queue
	handler Handler
	running atomic.Bool
}

// NewConsumer creates a consumer bound to the queue.
func NewConsumer(q *Queue, handler Handler) *Consumer {
	return &Consumer{queue: q, handler: handler}
}

// Running reports whether the consume loop is active. Exposed for the
// status endpoint.
func (c *Consumer) Running() bool {
	return c.running.Load()
}

// Run consumes jobs until the context is cancelled. Connection errors are
// logged and retried after the configured delay; the loop never exits on
// them, matching the always-on worker behavior of the original consumer.
func (c *Consumer) Run(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)

	q := c.queue
	q.logger.Info("worker consuming", "queue", q.cfg.Queue)

	for {
		if err := ctx.Err(); err != nil {
			q.logger.Info("worker stopping")
			return err
		}

		res, err := q.client.BRPop(ctx, popTimeout, q.cfg.Queue).Result()
		if err == redis.Nil {
			continue // Timed out with an empty queue
		}
		if err != nil {
			if ctx.Err() != nil {
				q.logger.Info("worker stopping")
				return ctx.Err()
			}
			q.logger.Error("queue pop failed, retrying", "err", err)
			select {
			case <-time.After(q.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		c.process(ctx, []byte(res[1]))
	}
}

// process decodes and handles one payload. Malformed payloads are dropped
// (re-enqueueing them would loop forever); handler failures are re-enqueued
// until the retry budget runs out.
func (c *Consumer) process(ctx context.Context, payload []byte) {
	q := c.queue

	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		q.logger.Error("dropping malformed job payload", "err", err)
		return
	}

	hooks := observability.Queue()
	hooks.OnJobReceived(ctx, job.ID)
	start := time.Now()

	err := c.handler(ctx, job)
	hooks.OnJobProcessed(ctx, job.ID, time.Since(start), err)
	if err == nil {
		q.logger.Info("job processed", "job", job.ID, "repository", job.Repository,
			"elapsed", time.Since(start).Round(time.Millisecond))
		return
	}

	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Error("job failed permanently", "job", job.ID, "attempts", job.Attempt, "err", err)
		return
	}

	q.logger.Warn("job failed, re-enqueueing", "job", job.ID, "attempt", job.Attempt, "err", err)
	hooks.OnJobRequeued(ctx, job.ID, job.Attempt)
	if err := q.Enqueue(ctx, job); err != nil {
		q.logger.Error("re-enqueue failed", "job", job.ID, "err", err)
	}
}
