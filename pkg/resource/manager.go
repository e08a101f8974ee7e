package resource

// DefaultMaxEvictionAttempts bounds how many LRU victims one write may
// evict before the write is rejected.
const DefaultMaxEvictionAttempts = 10

// Config configures a Manager.
type Config struct {
	// CeilingBytes is the admission limit; non-positive means unlimited.
	CeilingBytes int64

	// FragThresholdPct is the fragmentation rate (0-100) that raises the
	// defrag-needed flag.
	FragThresholdPct float64

	// FragCheckIntervalOps is the sampling cadence in allocations.
	FragCheckIntervalOps int

	// MaxEvictionAttempts bounds eviction work per write.
	MaxEvictionAttempts int
}

// Manager composes budget, recency, and fragmentation tracking into the
// admission-control facade used by guarded maps.
type Manager[K comparable] struct {
	budget   *Budget
	recency  *Recency[K]
	frag     *FragMonitor
	maxEvict int
}

// NewManager creates a manager from the given config.
func NewManager[K comparable](cfg Config) *Manager[K] {
	maxEvict := cfg.MaxEvictionAttempts
	if maxEvict <= 0 {
		maxEvict = DefaultMaxEvictionAttempts
	}
	return &Manager[K]{
		budget:   NewBudget(cfg.CeilingBytes),
		recency:  NewRecency[K](),
		frag:     NewFragMonitor(cfg.FragThresholdPct, cfg.FragCheckIntervalOps),
		maxEvict: maxEvict,
	}
}

// Admit reports whether size additional bytes fit the budget.
func (m *Manager[K]) Admit(size int64) bool {
	return m.budget.Admit(size)
}

// Touch records an access for eviction ordering.
func (m *Manager[K]) Touch(key K) {
	m.recency.Touch(key)
}

// Remove drops a key from eviction ordering.
func (m *Manager[K]) Remove(key K) {
	m.recency.Remove(key)
}

// EvictCandidates returns up to n eviction victims, least recent first.
// n <= 0 uses the configured eviction attempt bound.
func (m *Manager[K]) EvictCandidates(n int) []K {
	if n <= 0 {
		n = m.maxEvict
	}
	return m.recency.Candidates(n)
}

// MaxEvictionAttempts returns the per-write eviction bound.
func (m *Manager[K]) MaxEvictionAttempts() int {
	return m.maxEvict
}

// RecordAlloc accounts an allocation in the budget and the fragmentation
// monitor.
func (m *Manager[K]) RecordAlloc(size int64) {
	m.budget.RecordAlloc(size)
	m.frag.RecordAlloc(size)
}

// RecordFree accounts a release.
func (m *Manager[K]) RecordFree(size int64) {
	m.budget.RecordFree(size)
	m.frag.RecordFree(size)
}

// NeedsDefragmentation reports the latched defrag signal.
func (m *Manager[K]) NeedsDefragmentation() bool {
	return m.frag.NeedsDefrag()
}

// Defragment clears the defrag signal after the caller has compacted the
// container. The manager never triggers compaction implicitly.
func (m *Manager[K]) Defragment() {
	m.frag.Reset()
}

// FragmentationRate returns the current estimate in percent.
func (m *Manager[K]) FragmentationRate() float64 {
	return m.frag.Rate()
}

// Used returns allocated bytes.
func (m *Manager[K]) Used() int64 {
	return m.budget.Used()
}

// Ceiling returns the admission limit in bytes.
func (m *Manager[K]) Ceiling() int64 {
	return m.budget.Ceiling()
}

// SetCeiling changes the admission limit at runtime.
func (m *Manager[K]) SetCeiling(ceilingBytes int64) {
	m.budget.SetCeiling(ceilingBytes)
}

// TrackedKeys returns the recency-tracked key count.
func (m *Manager[K]) TrackedKeys() int {
	return m.recency.Len()
}

// RecencyOrder returns tracked keys, most recent first.
func (m *Manager[K]) RecencyOrder() []K {
	return m.recency.Keys()
}

// Clear resets recency tracking. Budget counters are driven by the
// container's free hooks and are not reset here.
func (m *Manager[K]) Clear() {
	m.recency.Clear()
}

// Swap exchanges accounting state with another manager. Callers must hold
// both guarded maps' write locks.
func (m *Manager[K]) Swap(other *Manager[K]) {
	if m == other {
		return
	}
	m.recency.swap(other.recency)
	m.frag.swap(other.frag)

	used, otherUsed := m.budget.Used(), other.budget.Used()
	m.budget.RecordFree(used)
	m.budget.RecordAlloc(otherUsed)
	other.budget.RecordFree(otherUsed)
	other.budget.RecordAlloc(used)
}
