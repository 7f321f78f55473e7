// Package lfu implements a bounded least-frequently-used key counter.
//
// The layout follows the frequency-list structure from "An O(1) algorithm for
// implementing the LFU cache eviction scheme" (Shah, Mitra and Matani): a
// chain of buckets in strictly increasing frequency order, each owning a FIFO
// list of the keys currently at that frequency. Increment, lookup and
// eviction all cost O(1); a full tracker evicts the head item of the first
// bucket, which is the oldest key at the lowest frequency. Keys and buckets
// live in slot arenas addressed by integer handles rather than heap nodes.
//
// A Tracker accounts key frequencies only, never values. Every operation
// serializes on one mutex, so a single Tracker is shared by all goroutines
// touching a given cluster.
package lfu

import (
	"fmt"
	"sync"

	"github.com/hotkeyd/hotkeyd/internal/counter"
)

// Tracker counts key accesses for one cluster, keeping at most capacity keys
// and evicting the least frequently used when a new key arrives full.
type Tracker struct {
	// mu serializes every operation. Its starvation mode hands the lock to
	// the longest waiter, so harvest and traffic goroutines cannot starve
	// each other.
	mu sync.Mutex

	label    string
	capacity int
	teardown func() bool

	index    map[string]handle // key -> item slot
	freqHead handle            // lowest-frequency bucket, or none when empty
	items    itemArena
	buckets  bucketArena

	increments uint64
	evictions  uint64
}

var _ counter.Interface = (*Tracker)(nil)

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithLabel attaches a cluster label, surfaced by Label.
func WithLabel(label string) Option {
	return func(t *Tracker) { t.label = label }
}

// WithTeardown registers a callback that Free invokes, outside the tracker
// lock, before the final clear. The callback's return value is ignored.
func WithTeardown(fn func() bool) Option {
	return func(t *Tracker) { t.teardown = fn }
}

// New builds an empty Tracker holding at most capacity keys.
func New(capacity int, opts ...Option) (*Tracker, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	t := &Tracker{
		capacity: capacity,
		index:    make(map[string]handle, capacity),
		freqHead: none,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Incr records one access to key. An existing key moves up one frequency; a
// new key enters at frequency 1, evicting the current least-frequently-used
// key first when the tracker is full.
func (t *Tracker) Incr(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.increments++
	if h, ok := t.index[key]; ok {
		t.promote(h)
		return
	}
	if len(t.index) >= t.capacity {
		t.evict()
	}
	t.insert(key)
}

// Latch returns every tracked key with its accumulated frequency and resets
// the tracker to empty. It is the only read path; counts accumulate between
// latches.
func (t *Tracker) Latch() map[string]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]uint64, len(t.index))
	for key, h := range t.index {
		out[key] = t.buckets.at(t.items.at(h).bucket).freq
	}
	t.clearLocked()
	return out
}

// Reset discards all tracked keys without reading them.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

// Free runs the teardown callback, if any, and then clears the tracker. The
// callback runs before the lock is taken so it may reach components that in
// turn touch this tracker. Free is called at most once; the tracker must not
// be used afterwards.
func (t *Tracker) Free() {
	if t.teardown != nil {
		t.teardown()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

// Len reports how many keys are currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.index)
}

// Label returns the cluster label given at construction.
func (t *Tracker) Label() string { return t.label }

// Capacity returns the maximum number of tracked keys.
func (t *Tracker) Capacity() int { return t.capacity }

// Stats reports lifetime operation totals.
func (t *Tracker) Stats() counter.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return counter.Stats{Increments: t.increments, Evictions: t.evictions}
}

// clearLocked empties the index, the chain and both arenas. The map and the
// arena slices keep their capacity, so steady-state latch cycles stop
// allocating once the tracker has been full once.
func (t *Tracker) clearLocked() {
	clear(t.index)
	t.freqHead = none
	t.items.reset()
	t.buckets.reset()
}

// insert adds key at frequency 1. The frequency-1 bucket becomes the new
// chain head when it does not already exist.
func (t *Tracker) insert(key string) {
	h := t.items.alloc(key)
	if t.freqHead != none && t.buckets.at(t.freqHead).freq == 1 {
		t.appendItem(t.freqHead, h)
	} else {
		b := t.buckets.alloc(1)
		t.linkBucketHead(b)
		t.appendItem(b, h)
	}
	t.index[key] = h
}

// promote moves item h from its bucket at frequency F to the bucket at F+1.
// The target is found or created while the current bucket is still linked,
// then the item moves, then the current bucket is dropped if the move
// emptied it.
func (t *Tracker) promote(h handle) {
	cur := t.items.at(h).bucket
	freq := t.buckets.at(cur).freq

	target := t.buckets.at(cur).next
	if target == none || t.buckets.at(target).freq != freq+1 {
		target = t.buckets.alloc(freq + 1)
		t.insertBucketAfter(target, cur)
	}

	t.unlinkItem(h)
	t.appendItem(target, h)

	if t.buckets.at(cur).head == none {
		if t.freqHead == cur {
			t.freqHead = target
		}
		t.unlinkBucket(cur)
	}
}

// evict drops the head item of the lowest-frequency bucket. Callers
// guarantee at least one key is tracked.
func (t *Tracker) evict() {
	b := t.freqHead
	h := t.buckets.at(b).head
	delete(t.index, t.items.at(h).key)
	t.unlinkItem(h)
	t.items.release(h)
	t.evictions++

	if t.buckets.at(b).head == none {
		t.freqHead = t.buckets.at(b).next
		t.unlinkBucket(b)
	}
}

// appendItem links item h at the tail of bucket b's item list and makes b
// the item's owner. Arrivals go to the tail; eviction takes the head.
func (t *Tracker) appendItem(b, h handle) {
	it := t.items.at(h)
	bk := t.buckets.at(b)
	it.bucket = b
	it.prev = bk.tail
	it.next = none
	if bk.tail != none {
		t.items.at(bk.tail).next = h
	} else {
		bk.head = h
	}
	bk.tail = h
}

// unlinkItem removes item h from its owning bucket's list. The bucket stays
// in the chain even when emptied; callers decide its fate.
func (t *Tracker) unlinkItem(h handle) {
	it := t.items.at(h)
	bk := t.buckets.at(it.bucket)
	if it.prev != none {
		t.items.at(it.prev).next = it.next
	} else {
		bk.head = it.next
	}
	if it.next != none {
		t.items.at(it.next).prev = it.prev
	} else {
		bk.tail = it.prev
	}
	it.bucket, it.prev, it.next = none, none, none
}

// linkBucketHead makes bucket b the new head of the frequency chain.
func (t *Tracker) linkBucketHead(b handle) {
	bk := t.buckets.at(b)
	bk.prev = none
	bk.next = t.freqHead
	if t.freqHead != none {
		t.buckets.at(t.freqHead).prev = b
	}
	t.freqHead = b
}

// insertBucketAfter links bucket b into the chain immediately after prev.
func (t *Tracker) insertBucketAfter(b, prev handle) {
	bk := t.buckets.at(b)
	pk := t.buckets.at(prev)
	bk.prev = prev
	bk.next = pk.next
	if pk.next != none {
		t.buckets.at(pk.next).prev = b
	}
	pk.next = b
}

// unlinkBucket splices bucket b out of the chain and releases its slot. The
// bucket's item list must already be empty.
func (t *Tracker) unlinkBucket(b handle) {
	bk := t.buckets.at(b)
	if bk.prev != none {
		t.buckets.at(bk.prev).next = bk.next
	}
	if bk.next != none {
		t.buckets.at(bk.next).prev = bk.prev
	}
	t.buckets.release(b)
}
