package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ordguard-go/internal/config"
	"github.com/yndnr/ordguard-go/internal/infra/confloader"
	"github.com/yndnr/ordguard-go/internal/infra/shutdown"
	"github.com/yndnr/ordguard-go/internal/telemetry/logger"
)

// WatchCommand returns the watch command. It holds a guarded map open,
// serves its metrics over HTTP, and applies configuration file changes
// without a restart.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Serve metrics and apply config reloads until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Listen address for the metrics endpoint",
				Value: "127.0.0.1:9464",
			},
		},
		Action: watchRun,
	}
}

func watchRun(c *cli.Context) error {
	env := GetEnv(c)

	ch, err := buildChannel(env)
	if err != nil {
		return err
	}
	m, err := buildMap(env, ch)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", env.Metrics.Handler())
	server := &http.Server{
		Addr:    c.String("metrics-addr"),
		Handler: mux,
	}

	shutdownHandler := shutdown.NewHandler(10 * time.Second)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		env.Log.Info("shutting down metrics server")
		return server.Shutdown(ctx)
	})

	// Reload ceiling and log level when the config file changes.
	configPath := c.String("config")
	if configPath != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(env.Log))
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := watcher.Watch(configPath); err != nil {
			return fmt.Errorf("watch %s: %w", configPath, err)
		}
		watcher.OnChange(func(path string) {
			if path != configPath {
				return
			}
			applyReload(env, m, configPath)
		})
		watcher.StartAsync()

		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}

	go func() {
		env.Log.Info("metrics endpoint listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Log.Error("metrics server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	env.Log.Info("watching", "config", configPath)
	return shutdownHandler.Wait()
}

// ceilingSetter is the slice of the guarded map watchRun needs for
// reloads, kept narrow for testing.
type ceilingSetter interface {
	SetCeiling(int64)
	Used() int64
	Ceiling() int64
}

func applyReload(env *Env, m ceilingSetter, configPath string) {
	fresh := config.Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(configPath))
	if err := loader.Load(fresh); err != nil {
		env.Log.Error("config reload failed", "error", err)
		return
	}
	if err := config.Verify(fresh); err != nil {
		env.Log.Error("config reload rejected", "error", err)
		return
	}

	if fresh.Log.Level != env.Cfg.Log.Level {
		logger.SetLevel(fresh.Log.Level)
		env.Log.Info("log level changed",
			"from", env.Cfg.Log.Level, "to", fresh.Log.Level)
	}
	if fresh.Memory.CeilingBytes != env.Cfg.Memory.CeilingBytes {
		m.SetCeiling(fresh.Memory.CeilingBytes)
		env.Log.Info("memory ceiling changed",
			"from", env.Cfg.Memory.CeilingBytes,
			"to", fresh.Memory.CeilingBytes,
			"used", m.Used())
	}
	env.Cfg = fresh
}
