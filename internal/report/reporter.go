package report

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hotkeyd/hotkeyd/internal/counter"
	"github.com/hotkeyd/hotkeyd/internal/logger"
	"github.com/hotkeyd/hotkeyd/internal/observability"
	"github.com/hotkeyd/hotkeyd/internal/registry"
)

type Config struct {
	Interval time.Duration
	TopN     int
	Host     string
}

// Reporter latches every registered tracker on a fixed interval and fans the
// non-empty snapshots out to the store and sinks.
type Reporter struct {
	log   *slog.Logger
	cfg   Config
	reg   *registry.Registry
	store *Store
	sinks []Sink

	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, reg *registry.Registry, store *Store, sinks []Sink, log *slog.Logger) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Host == "" {
		cfg.Host, _ = os.Hostname()
	}
	return &Reporter{
		log:   log,
		cfg:   cfg,
		reg:   reg,
		store: store,
		sinks: sinks,
		now:   time.Now,
	}
}

func (r *Reporter) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(r.cfg.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Harvest(ctx)
			}
		}
	}()

	r.log.Info("reporter started",
		"interval", r.cfg.Interval, "top_n", r.cfg.TopN, "sinks", len(r.sinks))
}

// Stop ends the harvest loop and closes every sink.
func (r *Reporter) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			r.log.Error("sink close", "sink", s.Name(), "err", err)
		}
	}
	r.log.Info("reporter stopped")
}

// Harvest latches every registered tracker once. Exported so shutdown can
// flush a final report outside the ticker cadence.
func (r *Reporter) Harvest(ctx context.Context) {
	ts := r.now().UTC()
	r.reg.Each(func(cluster string, c counter.Interface) {
		counts := c.Latch()
		if len(counts) == 0 {
			return
		}
		counts = TopN(counts, r.cfg.TopN)
		cctx := logger.WithCluster(ctx, cluster)

		snap := Snapshot{Cluster: cluster, Host: r.cfg.Host, TS: ts, Counts: counts}
		if r.store != nil {
			r.store.Put(snap)
		}
		for _, s := range r.sinks {
			err := s.Publish(cctx, snap)
			observability.IncReport(s.Name(), err)
			if err != nil {
				r.log.ErrorContext(cctx, "report publish failed",
					"sink", s.Name(), "err", err)
			}
		}
	})
}
