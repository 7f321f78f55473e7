// Package metricswrap wraps a counter with Prometheus metrics and sampled
// hot-key logging.
package metricswrap

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	xx "github.com/cespare/xxhash/v2"

	"github.com/hotkeyd/hotkeyd/internal/counter"
	mylog "github.com/hotkeyd/hotkeyd/internal/logger"
	"github.com/hotkeyd/hotkeyd/internal/observability"
)

type Sizer interface{ Len() int }

type Statser interface{ Stats() counter.Stats }

type WithMetrics struct {
	inner   counter.Interface
	cluster string

	mu            sync.Mutex
	prevEvictions uint64
}

var _ counter.Interface = (*WithMetrics)(nil)

var (
	hotThreshold = getenvUint("HOT_THRESHOLD", 0)
	logHotSample = getenvFloat("LOG_HOTKEYS_SAMPLE", 0.01)
)

func getenvUint(k string, def uint64) uint64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func New(inner counter.Interface, cluster string) *WithMetrics {
	if cluster == "" {
		cluster = "default"
	}
	return &WithMetrics{inner: inner, cluster: cluster}
}

func (w *WithMetrics) Incr(key string) {
	w.inner.Incr(key)
	observability.IncIncrement(w.cluster)
	w.syncGauges()
}

func (w *WithMetrics) Latch() map[string]uint64 {
	start := time.Now()
	counts := w.inner.Latch()
	observability.ObserveLatch(w.cluster, len(counts), time.Since(start).Seconds())
	w.syncGauges()
	if hotThreshold > 0 {
		w.logHot(counts)
	}
	return counts
}

func (w *WithMetrics) Reset() {
	w.inner.Reset()
	w.syncGauges()
}

func (w *WithMetrics) Free() {
	w.inner.Free()
	observability.ForgetCluster(w.cluster)
}

// syncGauges refreshes the tracked-keys gauge and turns the inner counter's
// lifetime eviction total into a monotone metric delta.
func (w *WithMetrics) syncGauges() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetTrackedKeys(w.cluster, s.Len())
	}
	if s, ok := w.inner.(Statser); ok {
		st := s.Stats()
		w.mu.Lock()
		var d uint64
		// a stale read can arrive after a fresher one; never rewind
		if st.Evictions > w.prevEvictions {
			d = st.Evictions - w.prevEvictions
			w.prevEvictions = st.Evictions
		}
		w.mu.Unlock()
		observability.AddEvictions(w.cluster, d)
	}
}

func (w *WithMetrics) logHot(counts map[string]uint64) {
	for k, n := range counts {
		if n >= hotThreshold && shouldLog(logHotSample, k) {
			l := mylog.Build(mylog.Config{Level: "info", Component: "hotkeys"}, nil)
			l.Info().
				Str("event", "hotkey_threshold").
				Str("cluster", w.cluster).
				Str("key", k).
				Uint64("count", n).
				Msg("key count above threshold")
		}
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}
