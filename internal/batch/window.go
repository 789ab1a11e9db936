package batch

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/padsync/padsync/internal/op"
)

// dedupWindow remembers the last capacity operation identities handed to
// the network. Insertion past capacity evicts the oldest identity, FIFO.
// Insert and evict are O(1): a ring buffer keeps insertion order, the set
// answers membership.
type dedupWindow struct {
	capacity int
	ring     []op.ID
	head     int // slot the next eviction comes from
	size     int
	set      mapset.Set[op.ID]
}

func newDedupWindow(capacity int) *dedupWindow {
	return &dedupWindow{
		capacity: capacity,
		ring:     make([]op.ID, capacity),
		set:      mapset.NewThreadUnsafeSet[op.ID](),
	}
}

func (w *dedupWindow) Seen(id op.ID) bool {
	return w.set.Contains(id)
}

// Add records an identity, evicting the oldest when full. Adding an
// identity already present is a no-op.
func (w *dedupWindow) Add(id op.ID) {
	if w.set.Contains(id) {
		return
	}

	if w.size == w.capacity {
		w.set.Remove(w.ring[w.head])
		w.ring[w.head] = id
		w.head = (w.head + 1) % w.capacity
	} else {
		w.ring[(w.head+w.size)%w.capacity] = id
		w.size++
	}
	w.set.Add(id)
}

func (w *dedupWindow) Len() int {
	return w.size
}
