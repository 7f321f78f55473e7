// Package counter defines the key-frequency tracker contract.
package counter

// Interface is a bounded per-cluster key access counter. Incr records one
// access, Latch harvests the accumulated counts and starts a fresh window,
// Reset discards the window without reading it, and Free tears the counter
// down for good. Implementations are safe for concurrent use; a counter must
// not be used after Free returns.
type Interface interface {
	Incr(key string)
	Latch() map[string]uint64
	Reset()
	Free()
}

// Stats are lifetime operation totals for a counter. They accumulate from
// construction on; Latch and Reset do not rewind them.
type Stats struct {
	Increments uint64
	Evictions  uint64
}
