// Package command provides CLI command definitions for ordguard.
//
// It uses urfave/cli/v2 for command parsing. Every command reads its
// configuration from the merged file/env/flag tree built in Before.
package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ordguard-go/internal/config"
	"github.com/yndnr/ordguard-go/internal/infra/buildinfo"
	"github.com/yndnr/ordguard-go/internal/infra/confloader"
	"github.com/yndnr/ordguard-go/internal/store"
	"github.com/yndnr/ordguard-go/internal/telemetry/logger"
	"github.com/yndnr/ordguard-go/internal/telemetry/metric"
	"github.com/yndnr/ordguard-go/pkg/crypto/aead"
	"github.com/yndnr/ordguard-go/pkg/guarded"
	"github.com/yndnr/ordguard-go/pkg/lockpolicy"
	"github.com/yndnr/ordguard-go/pkg/resource"
	"github.com/yndnr/ordguard-go/pkg/transfer"
)

// Env carries the loaded configuration and shared telemetry between
// Before and the commands.
type Env struct {
	Cfg     *config.Config
	Log     *slog.Logger
	Metrics *metric.Metrics
}

// App creates the CLI application.
func App() *cli.App {
	app := &cli.App{
		Name:    "ordguard",
		Usage:   "resource-guarded ordered map toolkit",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SnapshotCommand(),
			DemoCommand(),
			WatchCommand(),
		},
		Before: func(c *cli.Context) error {
			env, err := buildEnv(c)
			if err != nil {
				return err
			}
			c.App.Metadata["env"] = env
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML configuration file",
			EnvVars: []string{"ORDGUARD_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json, text",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Snapshot archive directory",
		},
	}
}

// buildEnv merges defaults, file, environment, and flags, then
// initializes the logger and metrics registry.
func buildEnv(c *cli.Context) (*Env, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	// Flags win over file and environment.
	overrides := map[string]any{}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}
	if v := c.String("log-format"); v != "" {
		overrides["log.format"] = v
	}
	if v := c.String("data-dir"); v != "" {
		overrides["storage.data_dir"] = v
	}
	if len(overrides) > 0 {
		if err := loader.LoadMap(overrides); err != nil {
			return nil, err
		}
		if err := loader.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	return &Env{
		Cfg:     cfg,
		Log:     log,
		Metrics: metric.New(),
	}, nil
}

// GetEnv retrieves the environment stored by Before.
func GetEnv(c *cli.Context) *Env {
	if env, ok := c.App.Metadata["env"].(*Env); ok {
		return env
	}
	return nil
}

// buildChannel assembles the resilient transfer channel from the
// transfer configuration section.
func buildChannel(env *Env) (*transfer.Channel, error) {
	t := env.Cfg.Transfer

	opts := []transfer.Option{
		transfer.WithTimeout(t.Timeout),
		transfer.WithRetryPolicy(transfer.RetryPolicy{
			MaxRetries:   t.MaxRetries,
			InitialDelay: t.RetryInitialDelay,
		}),
		transfer.WithLogger(env.Log),
		transfer.WithObserver(env.Metrics),
	}
	if t.MaxRateBytesPerSec > 0 {
		opts = append(opts, transfer.WithRateLimit(t.MaxRateBytesPerSec))
	}
	if t.EncryptionKey != "" {
		sealer, err := aead.New([]byte(t.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("encryption key: %w", err)
		}
		opts = append(opts, transfer.WithEncryption(sealer))
	}

	return transfer.NewChannel(opts...), nil
}

// buildMap assembles a guarded string map from the configuration.
func buildMap(env *Env, ch *transfer.Channel) (*guarded.Map[string, string], error) {
	kind, err := lockpolicy.KindFromString(env.Cfg.Lock.Policy)
	if err != nil {
		return nil, err
	}
	policy, err := lockpolicy.New(kind)
	if err != nil {
		return nil, err
	}

	mem := env.Cfg.Memory
	return guarded.New[string, string](
		guarded.WithPolicy[string, string](policy),
		guarded.WithResourceConfig[string, string](resource.Config{
			CeilingBytes:         mem.CeilingBytes,
			FragThresholdPct:     mem.FragmentationThresholdPct,
			FragCheckIntervalOps: mem.FragmentationCheckIntervalOps,
			MaxEvictionAttempts:  mem.MaxEvictionAttempts,
		}),
		guarded.WithChannel[string, string](ch),
		guarded.WithLogger[string, string](env.Log),
		guarded.WithObserver[string, string](env.Metrics),
	), nil
}

// openArchive opens the snapshot archive named by the storage section.
func openArchive(env *Env) (*store.Archive, error) {
	a, err := store.Open(store.Options{
		Dir:  env.Cfg.Storage.DataDir,
		Keep: env.Cfg.Storage.SnapshotKeep,
	}, env.Log)
	if err != nil {
		return nil, err
	}
	return a.RegisterMetrics(env.Metrics.Registry()), nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
