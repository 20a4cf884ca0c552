package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/ekisa-team/modelmem/internal/config"
	"github.com/ekisa-team/modelmem/internal/env"
	"github.com/ekisa-team/modelmem/internal/envvar"
	"github.com/ekisa-team/modelmem/internal/logger"
	"github.com/ekisa-team/modelmem/internal/memory"
	"github.com/ekisa-team/modelmem/internal/sysmon"
	"github.com/ekisa-team/modelmem/internal/xfs"
)

func main() {
	flagConfigPath := flag.String("config", defaultConfigFile(), "Path to config file")
	flag.Parse()

	environment := env.FromEnv()

	cfg, err := config.LoadAndValidate(*flagConfigPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return
	}

	slog.SetDefault(
		logger.New(environment,
			logger.WithLogToFile(cfg.Logging.ToFile),
			logger.WithLogFile(logFile(cfg)),
		),
	)

	monitor := sysmon.NewSystemMonitor()
	coordinator := memory.NewCoordinator(monitor, cfg)

	coordinator.Subscribe(func(e memory.Event) {
		slog.Info("Pressure handled",
			"level", e.Level, "freed_bytes", e.FreedBytes, "duration", e.Duration)
	})

	if _, err := config.NewWatcher(*flagConfigPath, func(cfg *config.Config, err error) {
		if err != nil {
			slog.Error("Failed to reload config", "error", err)
			return
		}

		coordinator.Configure(cfg)
	}); err != nil {
		slog.Error("Failed to create config watcher", "error", err)
		return
	}

	coordinator.StartMonitoring()

	slog.Info("Config loaded successfully", "config", *flagConfigPath)
	slog.Info("modelmem started", "strategy", cfg.Memory.Strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	coordinator.StopMonitoring()
	slog.Info("modelmem stopped")
}

// defaultConfigFile resolves the config file path.
// Precedence:
// 1. MODELMEM_CONFIG_PATH environment variable.
// 2. Default config path.
func defaultConfigFile() string {
	if p := os.Getenv(envvar.ModelmemConfigPath); p != "" {
		return xfs.ExpandTilde(p)
	}
	return path.Join(config.DefaultConfigPath(), "config.yaml")
}

// logFile resolves the log file path.
func logFile(cfg *config.Config) string {
	if p := os.Getenv(envvar.ModelmemLogFile); p != "" {
		return xfs.ExpandTilde(p)
	}
	if cfg.Logging.File != "" {
		return xfs.ExpandTilde(cfg.Logging.File)
	}
	return "logs/modelmem.log"
}
