// Package server exposes the agent's HTTP surface: liveness, metrics, and the
// read side of the report pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hotkeyd/hotkeyd/internal/observability"
	"github.com/hotkeyd/hotkeyd/internal/registry"
	"github.com/hotkeyd/hotkeyd/internal/report"
)

// Deps carries what the handlers read. They only ever serve stored
// snapshots; live trackers are never latched from here.
type Deps struct {
	Registry *registry.Registry
	Store    *report.Store
	Metrics  http.Handler
}

// sets up http and starts serving
func Run(ctx context.Context, addr string, logger *slog.Logger, deps Deps) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(logger, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// NewRouter wires the routes. Split from Run so tests can drive handlers
// through httptest.
func NewRouter(logger *slog.Logger, deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(Recover())
	r.Use(Logging(logger))
	r.Use(CORS())

	r.Get("/healthz", Liveness())
	r.Get("/metrics", deps.Metrics.ServeHTTP)
	r.Get("/clusters", HandleClusters(deps.Registry))
	r.Get("/clusters/{cluster}/hotkeys", HandleHotKeys(deps.Store))
	return r
}

// HandleClusters lists the cluster names with a registered tracker.
func HandleClusters(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		type resp struct {
			Clusters []string `json:"clusters"`
		}
		writeJSON(sw, http.StatusOK, resp{Clusters: reg.Clusters()})
		observability.ObserveHTTP(r.Method, "/clusters", sw.code, time.Since(start).Seconds())
	}
}

// HandleHotKeys serves the most recent stored snapshot for a cluster.
func HandleHotKeys(store *report.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		cluster := chi.URLParam(r, "cluster")
		if snap, ok := store.Get(cluster); ok {
			writeJSON(sw, http.StatusOK, snap)
		} else {
			http.Error(sw, "no report for cluster", http.StatusNotFound)
		}
		observability.ObserveHTTP(r.Method, "/clusters/{cluster}/hotkeys", sw.code, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
