package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/property-etl/internal/pkg/logger"
)

// ProgressTracker publishes run progress so operators can watch a large
// batch from outside the process. Implementations must tolerate failures
// silently; progress is best-effort and never affects the run.
type ProgressTracker interface {
	Start(ctx context.Context, runID, source string, total int)
	Update(ctx context.Context, runID string, processed, failed int)
	Finish(ctx context.Context, runID string, succeeded, failed int)
}

const progressTTL = 24 * time.Hour

func progressKey(runID string) string { return "etl:run:" + runID }

// RedisTracker keeps per-run progress hashes in Redis under etl:run:<id>.
type RedisTracker struct{ client *redis.Client }

// NewRedisTracker creates a Redis-backed progress tracker.
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{client: client}
}

func (t *RedisTracker) Start(ctx context.Context, runID, source string, total int) {
	key := progressKey(runID)
	err := t.client.HSet(ctx, key,
		"source", source,
		"total", total,
		"processed", 0,
		"failed", 0,
		"status", "running",
		"started_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		logger.Warn("progress tracker start failed", "run_id", runID, "error", err)
		return
	}
	t.client.Expire(ctx, key, progressTTL)
}

func (t *RedisTracker) Update(ctx context.Context, runID string, processed, failed int) {
	err := t.client.HSet(ctx, progressKey(runID),
		"processed", processed,
		"failed", failed,
	).Err()
	if err != nil {
		logger.Warn("progress tracker update failed", "run_id", runID, "error", err)
	}
}

func (t *RedisTracker) Finish(ctx context.Context, runID string, succeeded, failed int) {
	err := t.client.HSet(ctx, progressKey(runID),
		"processed", succeeded+failed,
		"failed", failed,
		"status", "complete",
		"finished_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		logger.Warn("progress tracker finish failed", "run_id", runID, "error", err)
	}
}

// Progress reads back a run's progress hash, mostly for operator tooling.
func (t *RedisTracker) Progress(ctx context.Context, runID string) (map[string]string, error) {
	vals, err := t.client.HGetAll(ctx, progressKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read progress %s: %w", runID, err)
	}
	return vals, nil
}
