package ordmap

import (
	"errors"
	"math"
	"reflect"
)

// Errors for container operations.
var (
	ErrFull     = errors.New("ordmap: max entries reached")
	ErrRejected = errors.New("ordmap: allocation rejected by hook")
)

// entryOverhead approximates the fixed per-entry bookkeeping cost in bytes.
const entryOverhead = 48

// Hooks intercept entry allocation and release.
//
// PreAlloc runs before an entry is stored; returning an error aborts the
// mutation with no state change. PostFree runs after an entry is removed.
// Byte counts are produced by the map's sizer.
type Hooks struct {
	PreAlloc func(bytes int) error
	PostFree func(bytes int)
}

// Sizer measures the byte footprint of one entry.
type Sizer[K comparable, V any] func(key K, value V) int

type entry[K comparable, V any] struct {
	key   K
	value V
	bytes int
}

// Map is an insertion-ordered associative container.
type Map[K comparable, V any] struct {
	entries    []entry[K, V]
	index      map[K]int
	hooks      Hooks
	sizer      Sizer[K, V]
	maxEntries int
	version    uint64
}

// Option configures the Map.
type Option[K comparable, V any] func(*Map[K, V])

// WithHooks installs allocation-interception hooks.
func WithHooks[K comparable, V any](hooks Hooks) Option[K, V] {
	return func(m *Map[K, V]) {
		m.hooks = hooks
	}
}

// WithSizer overrides the entry size estimator.
func WithSizer[K comparable, V any](sizer Sizer[K, V]) Option[K, V] {
	return func(m *Map[K, V]) {
		m.sizer = sizer
	}
}

// WithMaxEntries caps the number of entries the map will hold.
func WithMaxEntries[K comparable, V any](max int) Option[K, V] {
	return func(m *Map[K, V]) {
		if max > 0 {
			m.maxEntries = max
		}
	}
}

// New creates an empty ordered map.
func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{
		index:      make(map[K]int),
		sizer:      approxSize[K, V],
		maxEntries: math.MaxInt,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// approxSize is the default sizer: payload bytes for strings and byte
// slices, shallow type size otherwise, plus fixed overhead.
func approxSize[K comparable, V any](key K, value V) int {
	return entryOverhead + payloadSize(key) + payloadSize(value)
}

func payloadSize(v any) int {
	switch x := v.(type) {
	case string:
		return len(x)
	case []byte:
		return len(x)
	case nil:
		return 0
	default:
		return int(reflect.TypeOf(v).Size())
	}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.entries)
}

// Cap returns the current entry capacity (the reserve hint carried by
// snapshots as the bucket count).
func (m *Map[K, V]) Cap() int {
	return cap(m.entries)
}

// MaxEntries returns the configured entry cap.
func (m *Map[K, V]) MaxEntries() int {
	return m.maxEntries
}

// Version returns the structural mutation counter.
func (m *Map[K, V]) Version() uint64 {
	return m.version
}

// Has checks if a key exists.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.index[key]
	return ok
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	if i, ok := m.index[key]; ok {
		return m.entries[i].value, true
	}
	var zero V
	return zero, false
}

// EntryBytes returns the recorded byte footprint of a key's entry.
func (m *Map[K, V]) EntryBytes(key K) (int, bool) {
	if i, ok := m.index[key]; ok {
		return m.entries[i].bytes, true
	}
	return 0, false
}

// Set stores a key-value pair, preserving the key's insertion position on
// update. New keys append at the end of the iteration order.
func (m *Map[K, V]) Set(key K, value V) error {
	bytes := m.sizer(key, value)

	if i, ok := m.index[key]; ok {
		old := m.entries[i].bytes
		if err := m.preAlloc(bytes); err != nil {
			return err
		}
		m.entries[i].value = value
		m.entries[i].bytes = bytes
		m.postFree(old)
		return nil
	}

	if len(m.entries) >= m.maxEntries {
		return ErrFull
	}
	if err := m.preAlloc(bytes); err != nil {
		return err
	}
	m.entries = append(m.entries, entry[K, V]{key: key, value: value, bytes: bytes})
	m.index[key] = len(m.entries) - 1
	m.version++
	return nil
}

// Delete removes a key, shifting later entries down to preserve order.
func (m *Map[K, V]) Delete(key K) bool {
	i, ok := m.index[key]
	if !ok {
		return false
	}
	freed := m.entries[i].bytes

	copy(m.entries[i:], m.entries[i+1:])
	m.entries = m.entries[:len(m.entries)-1]
	delete(m.index, key)
	for j := i; j < len(m.entries); j++ {
		m.index[m.entries[j].key] = j
	}
	m.version++
	m.postFree(freed)
	return true
}

// Clear removes all entries.
func (m *Map[K, V]) Clear() {
	for i := range m.entries {
		m.postFree(m.entries[i].bytes)
	}
	m.entries = m.entries[:0]
	m.index = make(map[K]int)
	m.version++
}

// Reserve grows the entry capacity to at least n.
func (m *Map[K, V]) Reserve(n int) {
	if n <= cap(m.entries) {
		return
	}
	grown := make([]entry[K, V], len(m.entries), n)
	copy(grown, m.entries)
	m.entries = grown
	m.version++
}

// Compact reallocates the backing storage to exactly the live entry
// count, releasing slack left behind by deletions.
func (m *Map[K, V]) Compact() {
	if len(m.entries) == cap(m.entries) {
		return
	}
	packed := make([]entry[K, V], len(m.entries))
	copy(packed, m.entries)
	m.entries = packed
	m.version++
}

// At returns the entry at iteration position i.
func (m *Map[K, V]) At(i int) (K, V, bool) {
	if i < 0 || i >= len(m.entries) {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}
	e := m.entries[i]
	return e.key, e.value, true
}

// Range iterates over entries in insertion order.
//
// The callback returns false to stop iteration.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for i := range m.entries {
		if !fn(m.entries[i].key, m.entries[i].value) {
			return
		}
	}
}

// Keys returns all keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, len(m.entries))
	for i := range m.entries {
		keys = append(keys, m.entries[i].key)
	}
	return keys
}

// Swap exchanges the contents of two maps. Hooks and sizers stay with
// their map; only entries move.
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	if m == other {
		return
	}
	m.entries, other.entries = other.entries, m.entries
	m.index, other.index = other.index, m.index
	m.version++
	other.version++
}

func (m *Map[K, V]) preAlloc(bytes int) error {
	if m.hooks.PreAlloc == nil {
		return nil
	}
	if err := m.hooks.PreAlloc(bytes); err != nil {
		return err
	}
	return nil
}

func (m *Map[K, V]) postFree(bytes int) {
	if m.hooks.PostFree != nil {
		m.hooks.PostFree(bytes)
	}
}
