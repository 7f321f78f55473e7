package lfu

// handle addresses a slot in one of the tracker's arenas. Handles stay valid
// for the life of the slot, unlike pointers into a growing backing slice.
type handle int32

// none marks an absent neighbour, owner, or chain head.
const none handle = -1

// itemSlot holds one tracked key. A live slot belongs to exactly one bucket
// and sits in that bucket's doubly linked item list.
type itemSlot struct {
	key    string
	bucket handle
	prev   handle
	next   handle
}

// bucketSlot holds one distinct frequency. Live buckets form a doubly linked
// chain in strictly increasing freq order; head and tail bound the bucket's
// item list, oldest arrival first.
type bucketSlot struct {
	freq uint64
	prev handle
	next handle
	head handle
	tail handle
}

// itemArena is a grow-only slab of item slots with a free list. alloc may
// grow the backing slice, so *itemSlot pointers must not be held across it.
type itemArena struct {
	slots []itemSlot
	free  []handle
}

func (a *itemArena) at(h handle) *itemSlot { return &a.slots[h] }

func (a *itemArena) alloc(key string) handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = itemSlot{key: key, bucket: none, prev: none, next: none}
		return h
	}
	a.slots = append(a.slots, itemSlot{key: key, bucket: none, prev: none, next: none})
	return handle(len(a.slots) - 1)
}

// release returns h to the free list, clearing the key so the arena does not
// pin the string after eviction.
func (a *itemArena) release(h handle) {
	a.slots[h] = itemSlot{bucket: none, prev: none, next: none}
	a.free = append(a.free, h)
}

// reset forgets every slot but keeps both backing slices for the next fill
// cycle. Elements are zeroed first so truncation does not pin old keys.
func (a *itemArena) reset() {
	clear(a.slots)
	a.slots = a.slots[:0]
	a.free = a.free[:0]
}

// bucketArena is the bucket counterpart of itemArena, with the same pointer
// stability caveat around alloc.
type bucketArena struct {
	slots []bucketSlot
	free  []handle
}

func (a *bucketArena) at(h handle) *bucketSlot { return &a.slots[h] }

func (a *bucketArena) alloc(freq uint64) handle {
	s := bucketSlot{freq: freq, prev: none, next: none, head: none, tail: none}
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = s
		return h
	}
	a.slots = append(a.slots, s)
	return handle(len(a.slots) - 1)
}

func (a *bucketArena) release(h handle) {
	a.slots[h] = bucketSlot{prev: none, next: none, head: none, tail: none}
	a.free = append(a.free, h)
}

func (a *bucketArena) reset() {
	a.slots = a.slots[:0]
	a.free = a.free[:0]
}
