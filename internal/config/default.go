package config

import "time"

// Default configuration values.
const (
	DefaultCeilingBytes                  = int64(64 << 20)
	DefaultFragmentationThresholdPct     = 20.0
	DefaultFragmentationCheckIntervalOps = 1000
	DefaultMaxEvictionAttempts           = 10

	DefaultLockPolicy = "shared-exclusive"

	DefaultTransferTimeout   = 5 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryInitialDelay = 100 * time.Millisecond

	DefaultDataDir      = "/var/lib/ordguard/data"
	DefaultSnapshotKeep = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Memory: MemorySection{
			CeilingBytes:                  DefaultCeilingBytes,
			FragmentationThresholdPct:     DefaultFragmentationThresholdPct,
			FragmentationCheckIntervalOps: DefaultFragmentationCheckIntervalOps,
			MaxEvictionAttempts:           DefaultMaxEvictionAttempts,
		},
		Lock: LockSection{
			Policy: DefaultLockPolicy,
		},
		Transfer: TransferSection{
			Timeout:           DefaultTransferTimeout,
			MaxRetries:        DefaultMaxRetries,
			RetryInitialDelay: DefaultRetryInitialDelay,
		},
		Storage: StorageSection{
			DataDir:      DefaultDataDir,
			SnapshotKeep: DefaultSnapshotKeep,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
