package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMini(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

func TestRedisSink_WritesPrefixedKeyWithTTL(t *testing.T) {
	mr, rdb := newMini(t)
	sink := NewRedisSink(rdb, 30*time.Second, 0)
	t.Cleanup(func() { _ = sink.Close() })

	snap := Snapshot{
		Cluster: "sessions",
		TS:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Counts:  map[string]uint64{"user:42": 7},
	}
	if err := sink.Publish(context.Background(), snap); err != nil {
		t.Fatalf("publish: %v", err)
	}

	raw, err := mr.Get("hotkeys:report:sessions")
	if err != nil {
		t.Fatalf("stored key: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal stored report: %v", err)
	}
	if got.Cluster != "sessions" || got.Counts["user:42"] != 7 {
		t.Fatalf("stored report got=%+v", got)
	}

	if ttl := mr.TTL("hotkeys:report:sessions"); ttl != 30*time.Second {
		t.Fatalf("ttl got=%v want=30s", ttl)
	}
	mr.FastForward(time.Minute)
	if mr.Exists("hotkeys:report:sessions") {
		t.Fatal("report should expire")
	}
}

func TestRedisSink_PublishErrorWhenServerGone(t *testing.T) {
	mr, rdb := newMini(t)
	sink := NewRedisSink(rdb, time.Second, 100*time.Millisecond)
	t.Cleanup(func() { _ = sink.Close() })

	mr.Close()
	err := sink.Publish(context.Background(), Snapshot{Cluster: "c"})
	if err == nil {
		t.Fatal("expected publish to fail once the server is gone")
	}
}
