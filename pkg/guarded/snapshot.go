package guarded

import (
	"io"
	"math"

	"github.com/yndnr/ordguard-go/pkg/transfer"
)

// snapshotSource adapts the inner map to the transfer wire format. It is
// only constructed while the read lock is held.
type snapshotSource[K comparable, V any] struct {
	m *Map[K, V]
}

func (s snapshotSource[K, V]) Len() int { return s.m.inner.Len() }

func (s snapshotSource[K, V]) Capacity() int64 {
	if s.m.unlimitedCeiling() {
		return 0
	}
	return s.m.res.Ceiling()
}

func (s snapshotSource[K, V]) BucketCount() int { return s.m.inner.Cap() }

func (s snapshotSource[K, V]) Range(fn func(K, V) bool) { s.m.inner.Range(fn) }

// snapshotSink restores entries under the held write lock. Restored
// entries bypass admission: the snapshot was admitted when it was
// written, and it carries its own ceiling.
type snapshotSink[K comparable, V any] struct {
	m *Map[K, V]
}

func (s snapshotSink[K, V]) Clear() {
	s.m.inner.Clear()
	s.m.res.Clear()
}

func (s snapshotSink[K, V]) Reserve(n int) { s.m.inner.Reserve(n) }

func (s snapshotSink[K, V]) Put(key K, value V) error {
	if err := s.m.inner.Set(key, value); err != nil {
		return err
	}
	s.m.res.Touch(key)
	return nil
}

// SerializeTo writes a consistent snapshot of the map to w through the
// transfer channel. The read lock is held for the whole transfer.
func (m *Map[K, V]) SerializeTo(w io.Writer) error {
	h := m.policy.AcquireRead()
	defer h.Release()

	return transfer.Serialize[K, V](m.channel, w, snapshotSource[K, V]{m: m}, m.codec)
}

// DeserializeFrom replaces the map's contents with a snapshot read from
// r. The stream is fully verified before the first entry lands; the
// snapshot's recorded ceiling replaces the current one. The write lock
// is held for the whole transfer.
func (m *Map[K, V]) DeserializeFrom(r io.Reader) error {
	h := m.policy.AcquireWrite()
	defer h.Release()

	count, ceiling, err := transfer.Deserialize[K, V](m.channel, r, snapshotSink[K, V]{m: m}, m.codec)
	if err != nil {
		return err
	}
	if ceiling > 0 {
		m.res.SetCeiling(ceiling)
	} else {
		m.res.SetCeiling(math.MaxInt64)
	}

	m.obs.BudgetObserved(m.res.Used(), m.res.Ceiling())
	m.log.Info("restored snapshot", "entries", count, "ceiling", ceiling)
	return nil
}
