package config

import (
	"testing"
	"time"
)

func TestParseClusterMap(t *testing.T) {
	got := parseClusterMap(" sessions=localhost:6379, catalog = localhost:6380 ,bad, =nokey, novalue= ")
	if len(got) != 2 {
		t.Fatalf("got %d entries %v, want 2", len(got), got)
	}
	if got["sessions"] != "localhost:6379" {
		t.Fatalf("sessions: got=%q", got["sessions"])
	}
	if got["catalog"] != "localhost:6380" {
		t.Fatalf("catalog: got=%q", got["catalog"])
	}
}

func TestParseClusterMap_Empty(t *testing.T) {
	if got := parseClusterMap(""); got == nil || len(got) != 0 {
		t.Fatalf("got=%v want empty map", got)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr == "" || cfg.Capacity <= 0 {
		t.Fatalf("unusable defaults: %+v", cfg)
	}
	if cfg.Report.Interval <= 0 || cfg.Report.TTL < cfg.Report.Interval {
		t.Fatalf("report timing defaults inconsistent: %+v", cfg.Report)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CLUSTERS", "a=h1:1,b=h2:2")
	t.Setenv("TRACKER_CAPACITY", "77")
	t.Setenv("REPORT_INTERVAL", "2s")
	t.Setenv("KAFKA_ENABLED", "yes")

	cfg := FromEnv()
	if len(cfg.Clusters) != 2 || cfg.Clusters["a"] != "h1:1" {
		t.Fatalf("clusters: %v", cfg.Clusters)
	}
	if cfg.Capacity != 77 {
		t.Fatalf("capacity: got=%d want=77", cfg.Capacity)
	}
	if cfg.Report.Interval != 2*time.Second {
		t.Fatalf("interval: got=%v want=2s", cfg.Report.Interval)
	}
	if !cfg.Kafka.Enabled {
		t.Fatalf("kafka should be enabled")
	}
}
