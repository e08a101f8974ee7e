package guarded

import (
	"github.com/yndnr/ordguard-go/internal/core/domain"
	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
)

// Iterator walks a guarded map in insertion order while holding a read
// lock. It starts positioned before the first entry; Next advances it.
//
// An iterator invalidates when it is closed, explicitly invalidated,
// handed off, or when the map mutates structurally underneath it (which
// only a no-op lock policy allows). Every accessor on an invalidated
// iterator returns ErrInvalidIterator.
type Iterator[K comparable, V any] struct {
	m       *Map[K, V]
	handle  *lockpolicy.Handle
	version uint64
	pos     int
	invalid bool
}

// Iter acquires a read lock and returns an iterator bound to it. The
// caller must Close the iterator to release the lock.
func (m *Map[K, V]) Iter() *Iterator[K, V] {
	h := m.policy.AcquireRead()
	return &Iterator[K, V]{
		m:       m,
		handle:  h,
		version: m.inner.Version(),
		pos:     -1,
	}
}

func (it *Iterator[K, V]) check() error {
	if it.invalid || it.handle == nil || !it.handle.Held() {
		return domain.ErrInvalidIterator
	}
	if it.m.inner.Version() != it.version {
		it.invalid = true
		return domain.ErrInvalidIterator.WithDetails("container mutated during iteration")
	}
	return nil
}

// Next advances the iterator. It returns false with a nil error at the
// end of the map.
func (it *Iterator[K, V]) Next() (bool, error) {
	if err := it.check(); err != nil {
		return false, err
	}
	if it.pos+1 >= it.m.inner.Len() {
		return false, nil
	}
	it.pos++
	return true, nil
}

// Key returns the key at the current position.
func (it *Iterator[K, V]) Key() (K, error) {
	var zero K
	if err := it.check(); err != nil {
		return zero, err
	}
	key, _, ok := it.m.inner.At(it.pos)
	if !ok {
		return zero, domain.ErrInvalidIterator.WithDetails("iterator not positioned on an entry")
	}
	return key, nil
}

// Value returns the value at the current position.
func (it *Iterator[K, V]) Value() (V, error) {
	var zero V
	if err := it.check(); err != nil {
		return zero, err
	}
	_, value, ok := it.m.inner.At(it.pos)
	if !ok {
		return zero, domain.ErrInvalidIterator.WithDetails("iterator not positioned on an entry")
	}
	return value, nil
}

// Seek positions the iterator on key. It returns false with a nil error
// when the key is absent; the position is unchanged in that case.
func (it *Iterator[K, V]) Seek(key K) (bool, error) {
	if err := it.check(); err != nil {
		return false, err
	}
	for i := 0; i < it.m.inner.Len(); i++ {
		k, _, _ := it.m.inner.At(i)
		if k == key {
			it.pos = i
			return true, nil
		}
	}
	return false, nil
}

// Equal reports whether two iterators reference the same position of the
// same map. Both sides must be valid.
func (it *Iterator[K, V]) Equal(other *Iterator[K, V]) (bool, error) {
	if err := it.check(); err != nil {
		return false, err
	}
	if other == nil {
		return false, domain.ErrInvalidIterator
	}
	if err := other.check(); err != nil {
		return false, err
	}
	return it.m == other.m && it.pos == other.pos, nil
}

// Invalidate marks the iterator unusable without releasing its lock.
// Close must still be called.
func (it *Iterator[K, V]) Invalidate() {
	it.invalid = true
}

// Handoff transfers the held lock to a fresh iterator at the same
// position and invalidates the receiver. The returned iterator owns the
// lock; only it needs to be closed.
func (it *Iterator[K, V]) Handoff() (*Iterator[K, V], error) {
	if err := it.check(); err != nil {
		return nil, err
	}
	moved := &Iterator[K, V]{
		m:       it.m,
		handle:  it.handle,
		version: it.version,
		pos:     it.pos,
	}
	it.handle = nil
	it.invalid = true
	return moved, nil
}

// Close invalidates the iterator and releases its read lock. Closing
// twice returns ErrLockHandleReleased.
func (it *Iterator[K, V]) Close() error {
	it.invalid = true
	if it.handle == nil {
		return domain.ErrLockHandleReleased
	}
	return it.handle.Release()
}
