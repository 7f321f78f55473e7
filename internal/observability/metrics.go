// Package observability centralizes the Prometheus metrics of the agent.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	incrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotkeys_increments_total",
			Help: "Total key accesses recorded per cluster.",
		},
		[]string{"cluster"},
	)

	evictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotkeys_evictions_total",
			Help: "Keys evicted from the tracker per cluster.",
		},
		[]string{"cluster"},
	)

	trackedKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hotkeys_tracked_keys",
			Help: "Keys currently tracked per cluster.",
		},
		[]string{"cluster"},
	)

	latchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hotkeys_latch_duration_seconds",
			Help:    "Duration of latch operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.000005, 4, 10), // 5µs to ~1.3s
		},
		[]string{"cluster"},
	)

	latchedKeys = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hotkeys_latched_keys",
			Help:    "Number of keys harvested per latch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1 to 8192
		},
		[]string{"cluster"},
	)

	reportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotkeys_reports_total",
			Help: "Report publications by sink and outcome.",
		},
		[]string{"sink", "outcome"},
	)

	monitorLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotkeys_monitor_lines_total",
			Help: "MONITOR stream lines by cluster and status.",
		},
		[]string{"cluster", "status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary (value is always 1).",
		},
		[]string{"version"},
	)
)

// Init registers the application collectors with reg, typically a Provider's
// registry. The collectors also live on the default registry, so helpers work
// whether or not Init ran.
func Init(reg prometheus.Registerer, enabled bool) {
	if reg == nil || !enabled {
		return
	}
	reg.MustRegister(
		incrementsTotal,
		evictionsTotal,
		trackedKeys,
		latchDurationSeconds,
		latchedKeys,
		reportsTotal,
		monitorLinesTotal,
		httpRequestsTotal,
		httpRequestDurationSeconds,
		buildInfo,
	)
}

// Provider owns the curated registry served at /metrics.
type Provider struct {
	reg *prometheus.Registry
}

func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{reg: reg}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

func IncIncrement(cluster string) {
	incrementsTotal.WithLabelValues(cluster).Inc()
}

func AddEvictions(cluster string, n uint64) {
	if n == 0 {
		return
	}
	evictionsTotal.WithLabelValues(cluster).Add(float64(n))
}

func SetTrackedKeys(cluster string, n int) {
	trackedKeys.WithLabelValues(cluster).Set(float64(n))
}

func ObserveLatch(cluster string, keys int, durationSeconds float64) {
	latchDurationSeconds.WithLabelValues(cluster).Observe(durationSeconds)
	latchedKeys.WithLabelValues(cluster).Observe(float64(keys))
}

// ForgetCluster drops the per-cluster series after a tracker is torn down so
// stale gauges do not linger in scrapes.
func ForgetCluster(cluster string) {
	incrementsTotal.DeleteLabelValues(cluster)
	evictionsTotal.DeleteLabelValues(cluster)
	trackedKeys.DeleteLabelValues(cluster)
	latchDurationSeconds.DeleteLabelValues(cluster)
	latchedKeys.DeleteLabelValues(cluster)
}

func IncReport(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	reportsTotal.WithLabelValues(sink, outcome).Inc()
}

func IncMonitorLine(cluster string, observed bool) {
	status := "observed"
	if !observed {
		status = "skipped"
	}
	monitorLinesTotal.WithLabelValues(cluster, status).Inc()
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
