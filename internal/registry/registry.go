// Package registry owns the live tracker of each watched cluster.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/hotkeyd/hotkeyd/internal/counter"
)

// Factory builds the counter for a cluster the first time it is requested.
type Factory func(cluster string) (counter.Interface, error)

// Registry hands out one counter per cluster, creating them lazily through
// the factory and freeing them on Deregister.
type Registry struct {
	factory Factory
	log     *slog.Logger

	mu sync.RWMutex
	m  map[string]counter.Interface
}

func New(factory Factory, log *slog.Logger) *Registry {
	return &Registry{
		factory: factory,
		log:     log,
		m:       make(map[string]counter.Interface),
	}
}

// Get returns the cluster's counter, creating it on first use.
func (r *Registry) Get(cluster string) (counter.Interface, error) {
	if cluster == "" {
		return nil, errors.New("cluster name is required")
	}
	r.mu.RLock()
	c, ok := r.m[cluster]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.m[cluster]; ok {
		return c, nil
	}
	c, err := r.factory(cluster)
	if err != nil {
		return nil, fmt.Errorf("create tracker for cluster %q: %w", cluster, err)
	}
	r.m[cluster] = c
	r.log.Info("tracker registered", "cluster", cluster)
	return c, nil
}

// Lookup returns the cluster's counter only if it already exists.
func (r *Registry) Lookup(cluster string) (counter.Interface, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.m[cluster]
	return c, ok
}

// Clusters returns the registered cluster names, sorted.
func (r *Registry) Clusters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for name := range r.m {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Len reports how many clusters currently have a tracker.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

// Each calls fn for every registered counter. The set is snapshotted first
// and fn runs outside the registry lock, since fn typically takes the
// tracker's own lock.
func (r *Registry) Each(fn func(cluster string, c counter.Interface)) {
	r.mu.RLock()
	snapshot := make(map[string]counter.Interface, len(r.m))
	for name, c := range r.m {
		snapshot[name] = c
	}
	r.mu.RUnlock()

	for name, c := range snapshot {
		fn(name, c)
	}
}

// Deregister removes the cluster's counter and frees it, reporting whether
// one existed. Free runs outside the registry lock because teardown
// callbacks may call back into the registry.
func (r *Registry) Deregister(cluster string) bool {
	r.mu.Lock()
	c, ok := r.m[cluster]
	delete(r.m, cluster)
	r.mu.Unlock()
	if !ok {
		return false
	}
	c.Free()
	r.log.Info("tracker deregistered", "cluster", cluster)
	return true
}

// Close deregisters every cluster.
func (r *Registry) Close() {
	for _, name := range r.Clusters() {
		r.Deregister(name)
	}
}
