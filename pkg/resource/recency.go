package resource

import (
	"container/list"
	"sync"
)

// Recency maintains most-recently-used ordering over live keys.
//
// The list front is the most recent key; eviction candidates come from the
// back. The key index and the list are kept bijective: every tracked key
// occupies exactly one list position.
type Recency[K comparable] struct {
	mu    sync.Mutex
	order *list.List          // of K, front = most recent
	index map[K]*list.Element // key -> list position
}

// NewRecency creates an empty recency tracker.
func NewRecency[K comparable]() *Recency[K] {
	return &Recency[K]{
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// Touch records an access, moving the key to the most-recent position.
// Unknown keys are inserted.
func (r *Recency[K]) Touch(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.index[key]; ok {
		r.order.MoveToFront(el)
		return
	}
	r.index[key] = r.order.PushFront(key)
}

// PopOldest removes and returns the least-recently-used key.
func (r *Recency[K]) PopOldest() (K, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	back := r.order.Back()
	if back == nil {
		var zero K
		return zero, false
	}
	key := back.Value.(K)
	r.order.Remove(back)
	delete(r.index, key)
	return key, true
}

// Candidates returns up to n eviction candidates, least recent first,
// without removing them.
func (r *Recency[K]) Candidates(n int) []K {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 {
		return nil
	}
	out := make([]K, 0, n)
	for el := r.order.Back(); el != nil && len(out) < n; el = el.Prev() {
		out = append(out, el.Value.(K))
	}
	return out
}

// Remove drops a key from the tracker.
func (r *Recency[K]) Remove(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.index[key]; ok {
		r.order.Remove(el)
		delete(r.index, key)
	}
}

// Clear drops all tracked keys.
func (r *Recency[K]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.order.Init()
	r.index = make(map[K]*list.Element)
}

// Len returns the number of tracked keys.
func (r *Recency[K]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

// Keys returns all tracked keys, most recent first.
func (r *Recency[K]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]K, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(K))
	}
	return out
}

// swap exchanges the contents of two trackers. Both locks are taken; the
// caller is responsible for ordering when trackers belong to different
// guarded maps.
func (r *Recency[K]) swap(other *Recency[K]) {
	if r == other {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	r.order, other.order = other.order, r.order
	r.index, other.index = other.index, r.index
}
