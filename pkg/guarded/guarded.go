package guarded

import (
	"io"
	"log/slog"
	"math"
	"reflect"

	"github.com/yndnr/ordguard-go/internal/core/domain"
	"github.com/yndnr/ordguard-go/pkg/resource"
	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
	"github.com/yndnr/ordguard-go/pkg/ordmap"
	"github.com/yndnr/ordguard-go/pkg/transfer"
)

// Observer receives map telemetry. The telemetry package provides a
// Prometheus-backed implementation.
type Observer interface {
	BudgetObserved(used, ceiling int64)
	EvictionsObserved(count int)
	DefragNeeded(needed bool)
}

type nopObserver struct{}

func (nopObserver) BudgetObserved(int64, int64) {}
func (nopObserver) EvictionsObserved(int)       {}
func (nopObserver) DefragNeeded(bool)           {}

// Entry is one key-value pair in iteration order.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Map is a concurrency-guarded, memory-budgeted, insertion-ordered map.
type Map[K comparable, V any] struct {
	policy   lockpolicy.Policy
	inner    *ordmap.Map[K, V]
	res      *resource.Manager[K]
	codec    transfer.Codec[K, V]
	channel  *transfer.Channel
	sizer    ordmap.Sizer[K, V]
	validate func(K) error
	log      *slog.Logger
	obs      Observer
}

// Option configures a Map.
type Option[K comparable, V any] func(*config[K, V])

type config[K comparable, V any] struct {
	policy     lockpolicy.Policy
	resource   resource.Config
	codec      transfer.Codec[K, V]
	channel    *transfer.Channel
	sizer      ordmap.Sizer[K, V]
	maxEntries int
	validate   func(K) error
	log        *slog.Logger
	obs        Observer
}

// WithPolicy selects the lock policy. Default is shared-exclusive.
func WithPolicy[K comparable, V any](p lockpolicy.Policy) Option[K, V] {
	return func(c *config[K, V]) { c.policy = p }
}

// WithResourceConfig sets the memory budget and fragmentation knobs.
func WithResourceConfig[K comparable, V any](rc resource.Config) Option[K, V] {
	return func(c *config[K, V]) { c.resource = rc }
}

// WithCodec replaces the snapshot codec. Default is JSON.
func WithCodec[K comparable, V any](codec transfer.Codec[K, V]) Option[K, V] {
	return func(c *config[K, V]) { c.codec = codec }
}

// WithChannel replaces the transfer channel used by SerializeTo and
// DeserializeFrom.
func WithChannel[K comparable, V any](ch *transfer.Channel) Option[K, V] {
	return func(c *config[K, V]) { c.channel = ch }
}

// WithSizer overrides the entry footprint estimator.
func WithSizer[K comparable, V any](s ordmap.Sizer[K, V]) Option[K, V] {
	return func(c *config[K, V]) { c.sizer = s }
}

// WithMaxEntries caps the entry count independently of the byte budget.
func WithMaxEntries[K comparable, V any](max int) Option[K, V] {
	return func(c *config[K, V]) { c.maxEntries = max }
}

// WithKeyValidator replaces the default nil-key check.
func WithKeyValidator[K comparable, V any](fn func(K) error) Option[K, V] {
	return func(c *config[K, V]) { c.validate = fn }
}

// WithLogger attaches a structured logger.
func WithLogger[K comparable, V any](log *slog.Logger) Option[K, V] {
	return func(c *config[K, V]) { c.log = log }
}

// WithObserver attaches a metrics observer.
func WithObserver[K comparable, V any](obs Observer) Option[K, V] {
	return func(c *config[K, V]) { c.obs = obs }
}

// New creates a guarded map.
func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	cfg := config[K, V]{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.policy == nil {
		cfg.policy = lockpolicy.NewSharedExclusive()
	}
	if cfg.codec == nil {
		cfg.codec = transfer.JSONCodec[K, V]{}
	}
	if cfg.channel == nil {
		cfg.channel = transfer.NewChannel()
	}
	if cfg.validate == nil {
		cfg.validate = rejectNilKey[K]
	}
	if cfg.log == nil {
		cfg.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.obs == nil {
		cfg.obs = nopObserver{}
	}

	res := resource.NewManager[K](cfg.resource)

	sizer := cfg.sizer
	if sizer == nil {
		sizer = codecSizer[K, V](cfg.codec)
	}

	innerOpts := []ordmap.Option[K, V]{
		ordmap.WithSizer[K, V](sizer),
		ordmap.WithHooks[K, V](ordmap.Hooks{
			PreAlloc: func(bytes int) error {
				res.RecordAlloc(int64(bytes))
				return nil
			},
			PostFree: func(bytes int) {
				res.RecordFree(int64(bytes))
			},
		}),
	}
	if cfg.maxEntries > 0 {
		innerOpts = append(innerOpts, ordmap.WithMaxEntries[K, V](cfg.maxEntries))
	}

	return &Map[K, V]{
		policy:   cfg.policy,
		inner:    ordmap.New[K, V](innerOpts...),
		res:      res,
		codec:    cfg.codec,
		channel:  cfg.channel,
		sizer:    sizer,
		validate: cfg.validate,
		log:      cfg.log,
		obs:      cfg.obs,
	}
}

// codecSizer measures entries by their encoded size. Entries a codec
// cannot encode fail at insert time anyway, so encoding errors size as
// zero here.
func codecSizer[K comparable, V any](codec transfer.Codec[K, V]) ordmap.Sizer[K, V] {
	return func(key K, value V) int {
		size := 0
		if data, err := codec.EncodeKey(key); err == nil {
			size += len(data)
		}
		if data, err := codec.EncodeValue(value); err == nil {
			size += len(data)
		}
		return size
	}
}

// rejectNilKey fails pointer-like keys that are nil. Value kinds always
// pass.
func rejectNilKey[K comparable](key K) error {
	v := reflect.ValueOf(&key).Elem()
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if v.IsNil() {
			return domain.ErrNullKey
		}
	}
	return nil
}

// Set stores a key-value pair, evicting least-recently-used entries when
// the budget requires it. A write that cannot be admitted even after
// bounded eviction fails with ErrMemoryLimitExceeded and leaves the map
// and its accounting untouched.
func (m *Map[K, V]) Set(key K, value V) error {
	if err := m.validate(key); err != nil {
		return err
	}

	h := m.policy.AcquireWrite()
	defer h.Release()

	size := int64(m.sizer(key, value))
	delta := size
	if old, ok := m.inner.EntryBytes(key); ok {
		delta = size - int64(old)
	}

	if delta > 0 && !m.res.Admit(delta) {
		victims, err := m.planEviction(key, delta)
		if err != nil {
			m.log.Warn("write rejected by memory budget",
				"need", delta, "used", m.res.Used(), "ceiling", m.res.Ceiling())
			return err
		}
		for _, victim := range victims {
			m.inner.Delete(victim)
			m.res.Remove(victim)
		}
		if len(victims) > 0 {
			m.obs.EvictionsObserved(len(victims))
			m.log.Debug("evicted entries to admit write", "count", len(victims))
		}
	}

	if err := m.inner.Set(key, value); err != nil {
		return domain.ErrAllocationFailure.WithCause(err)
	}
	m.res.Touch(key)

	m.obs.BudgetObserved(m.res.Used(), m.res.Ceiling())
	if m.res.NeedsDefragmentation() {
		m.obs.DefragNeeded(true)
	}
	return nil
}

// planEviction selects least-recently-used victims whose removal would
// admit delta more bytes. It mutates nothing: when the bounded victim
// set cannot make room, the write fails before the first deletion.
func (m *Map[K, V]) planEviction(exempt K, delta int64) ([]K, error) {
	headroom := m.res.Ceiling() - m.res.Used()

	candidates := m.res.EvictCandidates(m.res.MaxEvictionAttempts())
	victims := make([]K, 0, len(candidates))
	for _, candidate := range candidates {
		if headroom >= delta {
			break
		}
		if candidate == exempt {
			continue
		}
		bytes, ok := m.inner.EntryBytes(candidate)
		if !ok {
			continue
		}
		victims = append(victims, candidate)
		headroom += int64(bytes)
	}
	if headroom < delta {
		return nil, domain.ErrMemoryLimitExceeded.WithDetails("bounded eviction cannot admit write")
	}
	return victims, nil
}

// Get retrieves a value and marks the key recently used.
func (m *Map[K, V]) Get(key K) (V, bool) {
	h := m.policy.AcquireRead()
	defer h.Release()

	value, ok := m.inner.Get(key)
	if ok {
		// Recency carries its own lock, so a touch is safe under a
		// shared read lock.
		m.res.Touch(key)
	}
	return value, ok
}

// Has reports key presence without touching recency.
func (m *Map[K, V]) Has(key K) bool {
	h := m.policy.AcquireRead()
	defer h.Release()
	return m.inner.Has(key)
}

// Delete removes a key.
func (m *Map[K, V]) Delete(key K) bool {
	h := m.policy.AcquireWrite()
	defer h.Release()

	ok := m.inner.Delete(key)
	if ok {
		m.res.Remove(key)
		m.obs.BudgetObserved(m.res.Used(), m.res.Ceiling())
	}
	return ok
}

// Len returns the entry count.
func (m *Map[K, V]) Len() int {
	h := m.policy.AcquireRead()
	defer h.Release()
	return m.inner.Len()
}

// Clear removes every entry and resets recency tracking.
func (m *Map[K, V]) Clear() {
	h := m.policy.AcquireWrite()
	defer h.Release()

	m.inner.Clear()
	m.res.Clear()
	m.obs.BudgetObserved(m.res.Used(), m.res.Ceiling())
}

// Keys returns all keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	h := m.policy.AcquireRead()
	defer h.Release()
	return m.inner.Keys()
}

// Snapshot returns all entries in insertion order.
func (m *Map[K, V]) Snapshot() []Entry[K, V] {
	h := m.policy.AcquireRead()
	defer h.Release()

	out := make([]Entry[K, V], 0, m.inner.Len())
	m.inner.Range(func(key K, value V) bool {
		out = append(out, Entry[K, V]{Key: key, Value: value})
		return true
	})
	return out
}

// Used returns the budget bytes currently allocated.
func (m *Map[K, V]) Used() int64 {
	return m.res.Used()
}

// Ceiling returns the budget limit in bytes.
func (m *Map[K, V]) Ceiling() int64 {
	return m.res.Ceiling()
}

// SetCeiling changes the budget limit at runtime. Existing entries are
// not evicted; the new limit applies to subsequent writes.
func (m *Map[K, V]) SetCeiling(ceilingBytes int64) {
	m.res.SetCeiling(ceilingBytes)
	m.obs.BudgetObserved(m.res.Used(), m.res.Ceiling())
}

// NeedsDefragmentation reports the latched fragmentation signal.
func (m *Map[K, V]) NeedsDefragmentation() bool {
	h := m.policy.AcquireRead()
	defer h.Release()
	return m.res.NeedsDefragmentation()
}

// FragmentationRate returns the current estimate in percent.
func (m *Map[K, V]) FragmentationRate() float64 {
	h := m.policy.AcquireRead()
	defer h.Release()
	return m.res.FragmentationRate()
}

// Defragment rebuilds the backing storage and clears the fragmentation
// signal. It never runs implicitly; callers decide when compaction is
// worth the write lock.
func (m *Map[K, V]) Defragment() {
	h := m.policy.AcquireWrite()
	defer h.Release()

	m.inner.Compact()
	m.res.Defragment()
	m.obs.DefragNeeded(false)
	m.log.Debug("defragmented backing storage", "entries", m.inner.Len())
}

// Swap exchanges the contents of two maps. Locks are acquired in
// ascending policy identity order so concurrent opposite swaps cannot
// deadlock. Swapping a map with itself is a no-op.
func (m *Map[K, V]) Swap(other *Map[K, V]) {
	if m == other {
		return
	}

	first, second := m, other
	if first.policy.ID() > second.policy.ID() {
		first, second = second, first
	}

	h1 := first.policy.AcquireWrite()
	defer h1.Release()
	if first.policy.ID() != second.policy.ID() {
		h2 := second.policy.AcquireWrite()
		defer h2.Release()
	}

	m.inner.Swap(other.inner)
	m.res.Swap(other.res)

	m.obs.BudgetObserved(m.res.Used(), m.res.Ceiling())
	other.obs.BudgetObserved(other.res.Used(), other.res.Ceiling())
}

// unlimitedCeiling reports whether the budget is uncapped.
func (m *Map[K, V]) unlimitedCeiling() bool {
	return m.res.Ceiling() == math.MaxInt64
}
