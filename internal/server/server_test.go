package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hotkeyd/hotkeyd/internal/counter"
	"github.com/hotkeyd/hotkeyd/internal/counter/lfu"
	"github.com/hotkeyd/hotkeyd/internal/observability"
	"github.com/hotkeyd/hotkeyd/internal/registry"
	"github.com/hotkeyd/hotkeyd/internal/report"
)

func newDeps(t *testing.T) (Deps, *registry.Registry, *report.Store) {
	t.Helper()
	reg := registry.New(func(string) (counter.Interface, error) {
		return lfu.New(16)
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(reg.Close)

	store := report.NewStore(8, time.Minute)
	p := observability.NewProvider()
	observability.Init(p.Registerer(), true)
	return Deps{Registry: reg, Store: store, Metrics: p.Handler()}, reg, store
}

func serve(t *testing.T, deps Deps, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), deps)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

func TestClusters_ListsSortedNames(t *testing.T) {
	deps, reg, _ := newDeps(t)
	if _, err := reg.Get("sessions"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := reg.Get("carts"); err != nil {
		t.Fatalf("get: %v", err)
	}

	rr := serve(t, deps, http.MethodGet, "/clusters")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	var got struct {
		Clusters []string `json:"clusters"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Clusters) != 2 || got.Clusters[0] != "carts" || got.Clusters[1] != "sessions" {
		t.Fatalf("clusters=%v want [carts sessions]", got.Clusters)
	}
}

func TestHotKeys_ServesStoredSnapshot(t *testing.T) {
	deps, _, store := newDeps(t)
	store.Put(report.Snapshot{
		Cluster: "sessions",
		TS:      time.Now().UTC(),
		Counts:  map[string]uint64{"user:42": 7},
	})

	rr := serve(t, deps, http.MethodGet, "/clusters/sessions/hotkeys")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q want application/json", ct)
	}
	var snap report.Snapshot
	if err := json.NewDecoder(rr.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Cluster != "sessions" || snap.Counts["user:42"] != 7 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestHotKeys_NotFoundWithoutReport(t *testing.T) {
	deps, _, _ := newDeps(t)

	rr := serve(t, deps, http.MethodGet, "/clusters/ghost/hotkeys")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	deps, _, _ := newDeps(t)
	observability.IncIncrement("server-test")

	rr := serve(t, deps, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"go_goroutines", `hotkeys_increments_total{cluster="server-test"}`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestRecover_TurnsPanicInto500(t *testing.T) {
	h := Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
}
