package resource

import "sync"

// Fragmentation defaults.
const (
	DefaultFragThresholdPct  = 20.0
	DefaultFragCheckInterval = 1000
)

// FragMonitor samples allocation and free volume to estimate fragmentation.
//
// The fragmentation rate is freed/(allocated+freed), expressed as a
// percentage. The needs-defrag flag latches once the sampled rate crosses
// the threshold and clears only on Reset.
type FragMonitor struct {
	mu sync.Mutex

	thresholdPct     float64
	checkIntervalOps uint64

	totalAllocated uint64
	totalFreed     uint64
	allocCount     uint64
	needsDefrag    bool
}

// NewFragMonitor creates a monitor with the given threshold (percent,
// 0-100) and sampling cadence in allocations. Non-positive arguments fall
// back to defaults.
func NewFragMonitor(thresholdPct float64, checkIntervalOps int) *FragMonitor {
	if thresholdPct <= 0 {
		thresholdPct = DefaultFragThresholdPct
	}
	if checkIntervalOps <= 0 {
		checkIntervalOps = DefaultFragCheckInterval
	}
	return &FragMonitor{
		thresholdPct:     thresholdPct,
		checkIntervalOps: uint64(checkIntervalOps),
	}
}

// RecordAlloc records an allocation and samples fragmentation every
// checkIntervalOps allocations.
func (f *FragMonitor) RecordAlloc(size int64) {
	if size < 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totalAllocated += uint64(size)
	f.allocCount++
	if f.allocCount%f.checkIntervalOps == 0 {
		if f.rateLocked() > f.thresholdPct {
			f.needsDefrag = true
		}
	}
}

// RecordFree records a release.
func (f *FragMonitor) RecordFree(size int64) {
	if size < 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.totalAllocated >= uint64(size) {
		f.totalAllocated -= uint64(size)
	} else {
		f.totalAllocated = 0
	}
	f.totalFreed += uint64(size)
}

// Rate returns the current fragmentation rate in percent.
func (f *FragMonitor) Rate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rateLocked()
}

func (f *FragMonitor) rateLocked() float64 {
	if f.totalAllocated == 0 {
		return 0
	}
	total := float64(f.totalAllocated + f.totalFreed)
	return float64(f.totalFreed) / total * 100.0
}

// NeedsDefrag reports whether a sampled rate has crossed the threshold.
func (f *FragMonitor) NeedsDefrag() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.needsDefrag
}

// Reset clears the defrag flag and the freed-volume counter after a
// compaction pass.
func (f *FragMonitor) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.needsDefrag = false
	f.totalFreed = 0
}

// swap exchanges monitor state between two guarded maps.
func (f *FragMonitor) swap(other *FragMonitor) {
	if f == other {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	f.totalAllocated, other.totalAllocated = other.totalAllocated, f.totalAllocated
	f.totalFreed, other.totalFreed = other.totalFreed, f.totalFreed
	f.allocCount, other.allocCount = other.allocCount, f.allocCount
	f.needsDefrag, other.needsDefrag = other.needsDefrag, f.needsDefrag
}
