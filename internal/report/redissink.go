package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys written by RedisSink carry this prefix so the watchers can tell the
// agent's own writes apart from application traffic.
const reportKeyPrefix = "hotkeys:report:"

// RedisSink stores the latest snapshot per cluster under a TTL'd key, so
// operators can inspect hot keys with plain redis-cli.
type RedisSink struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func NewRedisSink(rdb *redis.Client, ttl, opTimeout time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSink{rdb: rdb, ttl: ttl, opTimeout: opTimeout}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}
	if err := s.rdb.Set(ctx, reportKeyPrefix+snap.Cluster, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store report for %q: %w", snap.Cluster, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
