package pipeline

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTracker(t *testing.T) (*RedisTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTracker(client), mr
}

func TestRedisTrackerLifecycle(t *testing.T) {
	tracker, mr := newTestTracker(t)
	ctx := context.Background()

	tracker.Start(ctx, "run-1", "props.json", 50)
	tracker.Update(ctx, "run-1", 10, 1)

	progress, err := tracker.Progress(ctx, "run-1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress["source"] != "props.json" || progress["total"] != "50" {
		t.Errorf("unexpected start fields: %v", progress)
	}
	if progress["processed"] != "10" || progress["failed"] != "1" {
		t.Errorf("unexpected update fields: %v", progress)
	}
	if progress["status"] != "running" {
		t.Errorf("status = %q, want running", progress["status"])
	}

	tracker.Finish(ctx, "run-1", 48, 2)
	progress, err = tracker.Progress(ctx, "run-1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress["status"] != "complete" || progress["processed"] != "50" || progress["failed"] != "2" {
		t.Errorf("unexpected finish fields: %v", progress)
	}
	if progress["finished_at"] == "" {
		t.Error("finish must record a timestamp")
	}

	if mr.TTL("etl:run:run-1") <= 0 {
		t.Error("run key must expire")
	}
}

func TestRedisTrackerFailuresAreSilent(t *testing.T) {
	tracker, mr := newTestTracker(t)
	mr.Close()

	// A dead Redis must never panic or abort the caller.
	ctx := context.Background()
	tracker.Start(ctx, "run-2", "props.json", 10)
	tracker.Update(ctx, "run-2", 5, 0)
	tracker.Finish(ctx, "run-2", 10, 0)
}
