package config

import (
	"errors"
	"fmt"

	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyMemory(&cfg.Memory); err != nil {
		return err
	}
	if err := verifyLock(&cfg.Lock); err != nil {
		return err
	}
	if err := verifyTransfer(&cfg.Transfer); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	return nil
}

func verifyMemory(cfg *MemorySection) error {
	if cfg.CeilingBytes < 0 {
		return errors.New("memory.ceiling_bytes must not be negative")
	}
	if cfg.FragmentationThresholdPct < 0 || cfg.FragmentationThresholdPct > 100 {
		return errors.New("memory.fragmentation_threshold_pct must be between 0 and 100")
	}
	if cfg.FragmentationCheckIntervalOps < 0 {
		return errors.New("memory.fragmentation_check_interval_ops must not be negative")
	}
	if cfg.MaxEvictionAttempts < 0 {
		return errors.New("memory.max_eviction_attempts must not be negative")
	}
	return nil
}

func verifyLock(cfg *LockSection) error {
	if _, err := lockpolicy.KindFromString(cfg.Policy); err != nil {
		return fmt.Errorf("lock.policy: %w", err)
	}
	return nil
}

func verifyTransfer(cfg *TransferSection) error {
	if cfg.Timeout < 0 {
		return errors.New("transfer.timeout must not be negative")
	}
	if cfg.MaxRetries < 0 {
		return errors.New("transfer.max_retries must not be negative")
	}
	if cfg.RetryInitialDelay < 0 {
		return errors.New("transfer.retry_initial_delay must not be negative")
	}
	if cfg.MaxRateBytesPerSec < 0 {
		return errors.New("transfer.max_rate_bytes_per_sec must not be negative")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	return nil
}
