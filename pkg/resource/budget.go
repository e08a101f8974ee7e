package resource

import (
	"math"
	"sync/atomic"
)

// Budget meters allocated bytes against a ceiling.
//
// A single atomic counter is used instead of per-thread partitioned
// counters: reported usage is exact at the cost of some contention on
// concurrent allocation bursts.
type Budget struct {
	ceiling   atomic.Int64
	allocated atomic.Int64
}

// NewBudget creates a budget with the given ceiling in bytes.
// A non-positive ceiling means unlimited.
func NewBudget(ceilingBytes int64) *Budget {
	b := &Budget{}
	if ceilingBytes <= 0 {
		ceilingBytes = math.MaxInt64
	}
	b.ceiling.Store(ceilingBytes)
	return b
}

// Admit reports whether size additional bytes fit under the ceiling.
func (b *Budget) Admit(size int64) bool {
	return b.allocated.Load()+size <= b.ceiling.Load()
}

// RecordAlloc adds size bytes to the allocated count.
func (b *Budget) RecordAlloc(size int64) {
	if size > 0 {
		b.allocated.Add(size)
	}
}

// RecordFree subtracts size bytes, saturating at zero on under-count.
func (b *Budget) RecordFree(size int64) {
	if size <= 0 {
		return
	}
	for {
		cur := b.allocated.Load()
		next := cur - size
		if next < 0 {
			next = 0
		}
		if b.allocated.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Used returns the currently allocated byte count.
func (b *Budget) Used() int64 {
	return b.allocated.Load()
}

// Ceiling returns the current ceiling in bytes.
func (b *Budget) Ceiling() int64 {
	return b.ceiling.Load()
}

// SetCeiling changes the ceiling. Existing allocations above a lowered
// ceiling stay accounted; only new admissions are affected.
func (b *Budget) SetCeiling(ceilingBytes int64) {
	if ceilingBytes <= 0 {
		ceilingBytes = math.MaxInt64
	}
	b.ceiling.Store(ceilingBytes)
}
