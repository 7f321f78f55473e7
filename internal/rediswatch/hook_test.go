package rediswatch

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hotkeyd/hotkeyd/internal/counter/lfu"
)

func newMini(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newTracker(t *testing.T, capacity int) *lfu.Tracker {
	t.Helper()
	tr, err := lfu.New(capacity)
	if err != nil {
		t.Fatalf("lfu.New: %v", err)
	}
	return tr
}

func wantCount(t *testing.T, counts map[string]uint64, key string, want uint64) {
	t.Helper()
	if got := counts[key]; got != want {
		t.Fatalf("key %q: got=%d want=%d (full: %v)", key, got, want, counts)
	}
}

func TestHook_CountsWatchedCommands(t *testing.T) {
	rdb := newMini(t)
	tr := newTracker(t, 16)
	rdb.AddHook(NewHook(tr))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rdb.Set(ctx, "user:1", "x", 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := rdb.Get(ctx, "user:1").Err(); err != nil {
		t.Fatalf("Get: %v", err)
	}
	rdb.Get(ctx, "user:1")
	rdb.Get(ctx, "user:2") // miss still counts as an access
	if err := rdb.MGet(ctx, "a", "b").Err(); err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if err := rdb.Incr(ctx, "ctr").Err(); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if err := rdb.LPush(ctx, "list", "v").Err(); err != nil {
		t.Fatalf("LPush: %v", err)
	}

	counts := tr.Latch()
	wantCount(t, counts, "user:1", 3)
	wantCount(t, counts, "user:2", 1)
	wantCount(t, counts, "a", 1)
	wantCount(t, counts, "b", 1)
	wantCount(t, counts, "ctr", 1)
	if _, ok := counts["list"]; ok {
		t.Fatalf("lpush is not watched, got %v", counts)
	}
}

func TestHook_PipelineCountsEachCommand(t *testing.T) {
	rdb := newMini(t)
	tr := newTracker(t, 16)
	rdb.AddHook(NewHook(tr))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pipe := rdb.Pipeline()
	pipe.Set(ctx, "p1", "v", 0)
	pipe.Get(ctx, "p1")
	pipe.Get(ctx, "p2")
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		t.Fatalf("Exec: %v", err)
	}

	counts := tr.Latch()
	wantCount(t, counts, "p1", 2)
	wantCount(t, counts, "p2", 1)
}

func TestHook_CustomCommandList(t *testing.T) {
	rdb := newMini(t)
	tr := newTracker(t, 16)
	rdb.AddHook(NewHook(tr, "get"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rdb.Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := rdb.Get(ctx, "k").Err(); err != nil {
		t.Fatalf("Get: %v", err)
	}

	counts := tr.Latch()
	wantCount(t, counts, "k", 1)
}
