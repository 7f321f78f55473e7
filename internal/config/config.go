package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type KafkaCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type ReportCfg struct {
	Interval  time.Duration
	TopN      int
	TTL       time.Duration
	StoreSize int
	RedisAddr string
	LogSink   bool
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool

	Clusters map[string]string
	Capacity int

	WatchCommands  string
	MonitorEnabled bool
	OpTimeout      time.Duration

	Report ReportCfg
	Kafka  KafkaCfg
}

func FromEnv() Config {
	interval := getduration("REPORT_INTERVAL", 10*time.Second)

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),

		Clusters: parseClusterMap(getenv("CLUSTERS", "default=localhost:6379")),
		Capacity: getint("TRACKER_CAPACITY", 1024),

		WatchCommands:  getenv("WATCH_COMMANDS", ""),
		MonitorEnabled: getbool("MONITOR_ENABLED", true),
		OpTimeout:      getduration("REDIS_OP_TIMEOUT", 500*time.Millisecond),

		Report: ReportCfg{
			Interval:  interval,
			TopN:      getint("REPORT_TOP_N", 100),
			TTL:       getduration("REPORT_TTL", 3*interval),
			StoreSize: getint("REPORT_STORE_SIZE", 128),
			RedisAddr: getenv("REPORT_REDIS_ADDR", ""),
			LogSink:   getbool("REPORT_LOG_SINK", true),
		},
		Kafka: KafkaCfg{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "hotkey-reports"),
			Queue:   getint("KAFKA_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "sessions=localhost:6379,catalog=localhost:6380" into map
func parseClusterMap(s string) map[string]string {
	out := map[string]string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out
	}
	parts := strings.SplitSeq(s, ",")
	for p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
