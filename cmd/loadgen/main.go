// Zipf-distributed GET/SET traffic against one redis, with a hook-instrumented
// client so the run prints its own local hot-key view at the end.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hotkeyd/hotkeyd/internal/counter/lfu"
	"github.com/hotkeyd/hotkeyd/internal/rediswatch"
)

func getenv(key, def string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redisAddr := getenv("REDIS_ADDR", "localhost:6379")
	requests := getint("REQUESTS", 50000)
	keyspace := getint("KEYSPACE", 10000)
	setEvery := getint("SET_EVERY", 10)
	capacity := getint("TRACKER_CAPACITY", 128)

	tracker, err := lfu.New(capacity, lfu.WithLabel("loadgen"))
	if err != nil {
		fmt.Println("tracker error:", err)
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:        redisAddr,
		DialTimeout: 2 * time.Second,
	})
	defer func() { _ = client.Close() }()
	client.AddHook(rediswatch.NewHook(tracker))

	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Println("redis ping error:", err)
		return
	}

	fmt.Printf("loadgen: %d requests over %d keys against %s\n", requests, keyspace, redisAddr)

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	zipf := rand.NewZipf(rng, 1.1, 1, uint64(keyspace-1))

	start := time.Now()
	for i := range requests {
		key := fmt.Sprintf("user:%d", zipf.Uint64())
		if setEvery > 0 && i%setEvery == 0 {
			err = client.Set(ctx, key, "x", time.Minute).Err()
		} else {
			err = client.Get(ctx, key).Err()
			if errors.Is(err, redis.Nil) {
				err = nil
			}
		}
		if err != nil {
			fmt.Printf("request %d failed: %v\n", i, err)
			return
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("done: %d requests in %s (%.0f req/s)\n",
		requests, elapsed.Round(time.Millisecond), float64(requests)/elapsed.Seconds())

	printTop(tracker.Latch(), 10)
}

func printTop(counts map[string]uint64, n int) {
	type kc struct {
		key   string
		count uint64
	}
	all := make([]kc, 0, len(counts))
	for k, c := range counts {
		all = append(all, kc{key: k, count: c})
	}
	slices.SortFunc(all, func(a, b kc) int {
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		return cmp.Compare(a.key, b.key)
	})
	if len(all) > n {
		all = all[:n]
	}

	fmt.Println("local hot-key view:")
	for _, e := range all {
		fmt.Printf("  %-16s %d\n", e.key, e.count)
	}
}
