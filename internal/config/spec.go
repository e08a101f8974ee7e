package config

import "time"

// Config is the root configuration for ordguard.
type Config struct {
	Memory   MemorySection   `koanf:"memory"`
	Lock     LockSection     `koanf:"lock"`
	Transfer TransferSection `koanf:"transfer"`
	Storage  StorageSection  `koanf:"storage"`
	Log      LogSection      `koanf:"log"`
}

// MemorySection configures the budget and fragmentation monitor.
type MemorySection struct {
	// CeilingBytes caps the map's byte footprint. Zero means unlimited.
	CeilingBytes int64 `koanf:"ceiling_bytes"`

	// FragmentationThresholdPct is the freed-to-total percentage that
	// raises the defragmentation signal.
	FragmentationThresholdPct float64 `koanf:"fragmentation_threshold_pct"`

	// FragmentationCheckIntervalOps is the sampling cadence in
	// allocations.
	FragmentationCheckIntervalOps int `koanf:"fragmentation_check_interval_ops"`

	// MaxEvictionAttempts bounds how many LRU victims one write may
	// evict.
	MaxEvictionAttempts int `koanf:"max_eviction_attempts"`
}

// LockSection configures concurrency guarding.
type LockSection struct {
	// Policy is one of: shared-exclusive, exclusive, none.
	Policy string `koanf:"policy"`
}

// TransferSection configures the resilient snapshot channel.
type TransferSection struct {
	// Timeout bounds one transfer attempt. Zero disables the bound.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the retry budget after the initial attempt.
	MaxRetries int `koanf:"max_retries"`

	// RetryInitialDelay seeds the linear backoff.
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay"`

	// MaxRateBytesPerSec caps outbound snapshot throughput. Zero
	// disables limiting.
	MaxRateBytesPerSec int `koanf:"max_rate_bytes_per_sec"`

	// EncryptionKey enables authenticated encryption of snapshot
	// payloads when non-empty.
	EncryptionKey string `koanf:"encryption_key"`
}

// StorageSection configures the local snapshot archive.
type StorageSection struct {
	// DataDir is the archive directory.
	DataDir string `koanf:"data_dir"`

	// SnapshotKeep is how many archived snapshots Prune retains.
	SnapshotKeep int `koanf:"snapshot_keep"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
