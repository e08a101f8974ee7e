package config

import (
	"strings"
	"testing"
)

func TestDefaultPassesVerify(t *testing.T) {
	if err := Verify(Default()); err != nil {
		t.Errorf("Verify(Default()) = %v", err)
	}
}

func TestVerifyRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			"negative ceiling",
			func(c *Config) { c.Memory.CeilingBytes = -1 },
			"memory.ceiling_bytes",
		},
		{
			"threshold above 100",
			func(c *Config) { c.Memory.FragmentationThresholdPct = 150 },
			"memory.fragmentation_threshold_pct",
		},
		{
			"negative check interval",
			func(c *Config) { c.Memory.FragmentationCheckIntervalOps = -5 },
			"memory.fragmentation_check_interval_ops",
		},
		{
			"negative eviction attempts",
			func(c *Config) { c.Memory.MaxEvictionAttempts = -1 },
			"memory.max_eviction_attempts",
		},
		{
			"unknown lock policy",
			func(c *Config) { c.Lock.Policy = "spinlock" },
			"lock.policy",
		},
		{
			"negative timeout",
			func(c *Config) { c.Transfer.Timeout = -1 },
			"transfer.timeout",
		},
		{
			"negative retries",
			func(c *Config) { c.Transfer.MaxRetries = -1 },
			"transfer.max_retries",
		},
		{
			"negative rate",
			func(c *Config) { c.Transfer.MaxRateBytesPerSec = -1 },
			"transfer.max_rate_bytes_per_sec",
		},
		{
			"empty data dir",
			func(c *Config) { c.Storage.DataDir = "" },
			"storage.data_dir",
		},
		{
			"zero snapshot keep",
			func(c *Config) { c.Storage.SnapshotKeep = 0 },
			"storage.snapshot_keep",
		},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		err := Verify(cfg)
		if err == nil {
			t.Errorf("%s: Verify = nil, want error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("%s: Verify = %q, want mention of %q", tc.name, err, tc.wantMsg)
		}
	}
}

func TestZeroCeilingMeansUnlimited(t *testing.T) {
	cfg := Default()
	cfg.Memory.CeilingBytes = 0
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify with unlimited ceiling = %v", err)
	}
}
