package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hotkeyd/hotkeyd/internal/config"
	"github.com/hotkeyd/hotkeyd/internal/counter"
	"github.com/hotkeyd/hotkeyd/internal/counter/lfu"
	"github.com/hotkeyd/hotkeyd/internal/counter/metricswrap"
	"github.com/hotkeyd/hotkeyd/internal/logger"
	"github.com/hotkeyd/hotkeyd/internal/observability"
	"github.com/hotkeyd/hotkeyd/internal/redisclient"
	"github.com/hotkeyd/hotkeyd/internal/rediswatch"
	"github.com/hotkeyd/hotkeyd/internal/registry"
	"github.com/hotkeyd/hotkeyd/internal/report"
	"github.com/hotkeyd/hotkeyd/internal/server"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run() int {
	// overriding listen addr and capacity via flags
	addrFlag := flag.String("addr", "", "listen address")
	capacityFlag := flag.Int("capacity", 0, "tracker capacity per cluster")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}
	if *capacityFlag > 0 {
		cfg.Capacity = *capacityFlag
	}
	watched := splitList(cfg.WatchCommands)

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Component: "hotkeyd",
	}, os.Stdout)

	appLog := logger.NewSlog(&zl)

	p := observability.NewProvider()
	observability.Init(p.Registerer(), true)
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting hotkeyd",
		"addr", cfg.Addr,
		"version", Version,
		"clusters", len(cfg.Clusters),
		"capacity", cfg.Capacity,
		"monitor", cfg.MonitorEnabled)

	reg := registry.New(func(cluster string) (counter.Interface, error) {
		t, err := lfu.New(cfg.Capacity,
			lfu.WithLabel(cluster),
			lfu.WithTeardown(func() bool {
				appLog.Info("tracker torn down", "cluster", cluster)
				return true
			}))
		if err != nil {
			return nil, err
		}
		return metricswrap.New(t, cluster), nil
	}, appLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients := make(map[string]*redis.Client, len(cfg.Clusters))
	var monitors []*rediswatch.Monitor
	for name, addr := range cfg.Clusters {
		c, err := reg.Get(name)
		if err != nil {
			appLog.Error("tracker setup failed", "cluster", name, "err", err)
			return 1
		}

		var opts []redisclient.Option
		if cfg.MonitorEnabled {
			// MONITOR streams stay open for the process lifetime.
			opts = append(opts, redisclient.WithReadTimeout(-1))
		}
		rdb, err := redisclient.New(ctx, addr, opts...)
		if err != nil {
			appLog.Error("redis connect failed", "cluster", name, "addr", addr, "err", err)
			return 1
		}
		rdb.AddHook(rediswatch.NewHook(c, watched...))
		clients[name] = rdb

		if cfg.MonitorEnabled {
			m := rediswatch.NewMonitor(name, rdb, c, appLog, watched...)
			m.Start(ctx)
			monitors = append(monitors, m)
		}
	}

	var sinks []report.Sink
	if cfg.Report.LogSink {
		sinks = append(sinks, report.NewLogSink(appLog))
	}
	if cfg.Report.RedisAddr != "" {
		rdb, err := redisclient.New(ctx, cfg.Report.RedisAddr)
		if err != nil {
			appLog.Error("report redis connect failed", "addr", cfg.Report.RedisAddr, "err", err)
			return 1
		}
		sinks = append(sinks, report.NewRedisSink(rdb, cfg.Report.TTL, cfg.OpTimeout))
	}
	if cfg.Kafka.Enabled {
		ks, err := report.NewKafkaSink(splitList(cfg.Kafka.Brokers), cfg.Kafka.Topic, cfg.Kafka.Queue, appLog)
		if err != nil {
			appLog.Error("kafka sink setup failed", "err", err)
			return 1
		}
		sinks = append(sinks, ks)
	}

	store := report.NewStore(cfg.Report.StoreSize, cfg.Report.TTL)
	rep := report.New(report.Config{
		Interval: cfg.Report.Interval,
		TopN:     cfg.Report.TopN,
	}, reg, store, sinks, appLog)
	rep.Start(ctx)

	err := server.Run(ctx, cfg.Addr, appLog, server.Deps{
		Registry: reg,
		Store:    store,
		Metrics:  p.Handler(),
	})

	// Drain in dependency order: feeds first, then a final report flush,
	// then the trackers themselves.
	for _, m := range monitors {
		m.Stop()
	}
	rep.Harvest(context.Background())
	rep.Stop()
	reg.Close()
	for _, rdb := range clients {
		_ = rdb.Close()
	}

	if err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("agent stopped")
	return 0
}
