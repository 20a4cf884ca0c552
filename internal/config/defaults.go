package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// DefaultMemoryThresholdBytes is the default warning threshold (500 MB).
	DefaultMemoryThresholdBytes int64 = 500 * 1024 * 1024

	// DefaultCriticalThresholdBytes is the default critical threshold (250 MB).
	DefaultCriticalThresholdBytes int64 = 250 * 1024 * 1024

	// DefaultMonitoringInterval is the default sampling interval.
	DefaultMonitoringInterval = 5 * time.Second
)

// Default returns a configuration with built-in defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Memory: MemoryConfig{
			MemoryThresholdBytes:   DefaultMemoryThresholdBytes,
			CriticalThresholdBytes: DefaultCriticalThresholdBytes,
			MonitoringInterval:     Duration(DefaultMonitoringInterval),
			Strategy:               StrategyLRU,
		},
	}
}

// DefaultConfigPath returns the default path for the modelmem config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "modelmem", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "modelmem")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "modelmem")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "modelmem")
		}
		return filepath.Join(home, ".config", "modelmem")
	}
}
