// Package report harvests tracker counts on a fixed cadence and delivers
// the resulting snapshots to the configured sinks.
package report

import (
	"container/heap"
	"context"
	"time"
)

// Snapshot is one harvested report for a cluster.
type Snapshot struct {
	Cluster string            `json:"cluster"`
	Host    string            `json:"host,omitempty"`
	TS      time.Time         `json:"ts"`
	Counts  map[string]uint64 `json:"counts"`
}

// Sink delivers snapshots somewhere durable or visible. Publish must not
// block the harvest cadence for long; slow transports buffer or drop.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap Snapshot) error
	Close() error
}

type entry struct {
	key   string
	count uint64
}

// entries is a max-heap over counts.
type entries []entry

func (e entries) Len() int           { return len(e) }
func (e entries) Less(i, j int) bool { return e[i].count > e[j].count }
func (e entries) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }

func (e *entries) Push(x any) { *e = append(*e, x.(entry)) }

func (e *entries) Pop() any {
	old := *e
	n := len(old)
	it := old[n-1]
	*e = old[:n-1]
	return it
}

// TopN keeps the n highest counts of m. The map comes back untouched when it
// already fits or when n <= 0.
func TopN(m map[string]uint64, n int) map[string]uint64 {
	if n <= 0 || len(m) <= n {
		return m
	}
	h := make(entries, 0, len(m))
	for k, c := range m {
		h = append(h, entry{key: k, count: c})
	}
	heap.Init(&h)

	out := make(map[string]uint64, n)
	for range n {
		it := heap.Pop(&h).(entry)
		out[it.key] = it.count
	}
	return out
}
