package report

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps the latest snapshot per cluster for the HTTP surface. Entries
// expire after ttl so a torn-down cluster stops serving stale heat, and the
// LRU bound caps memory across cluster churn.
type Store struct {
	lru *expirable.LRU[string, Snapshot]
}

func NewStore(maxClusters int, ttl time.Duration) *Store {
	if maxClusters <= 0 {
		maxClusters = 128
	}
	return &Store{lru: expirable.NewLRU[string, Snapshot](maxClusters, nil, ttl)}
}

func (s *Store) Put(snap Snapshot) {
	s.lru.Add(snap.Cluster, snap)
}

func (s *Store) Get(cluster string) (Snapshot, bool) {
	return s.lru.Get(cluster)
}

func (s *Store) Remove(cluster string) {
	s.lru.Remove(cluster)
}
