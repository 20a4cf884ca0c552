package config

import (
	"errors"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

// Strategy selects the eviction ordering used under memory pressure.
type Strategy string

const (
	// StrategyLRU evicts the least recently used models first.
	StrategyLRU Strategy = "lru"

	// StrategyLargestFirst evicts the largest models first.
	StrategyLargestFirst Strategy = "largest_first"

	// StrategyOldestFirst evicts the models registered earliest first.
	StrategyOldestFirst Strategy = "oldest_first"

	// StrategyPriorityBased evicts the lowest priority models first.
	StrategyPriorityBased Strategy = "priority_based"
)

// IsValid checks if the strategy is a known value.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyLRU, StrategyLargestFirst, StrategyOldestFirst, StrategyPriorityBased:
		return true
	}
	return false
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Duration wraps time.Duration so it can be decoded from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML decodes a duration from its string form.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the main configuration for the application.
type Config struct {
	Version string        `json:"version"           yaml:"version"`
	Memory  MemoryConfig  `json:"memory"            yaml:"memory"`
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// MemoryConfig holds thresholds and policy for the memory subsystem.
type MemoryConfig struct {
	// MemoryThresholdBytes is the available-memory floor below which a
	// warning-level pressure response is triggered.
	MemoryThresholdBytes int64 `json:"memory_threshold_bytes" yaml:"memory_threshold_bytes"`

	// CriticalThresholdBytes is the available-memory floor below which a
	// critical-level pressure response is triggered. Must be lower than
	// MemoryThresholdBytes.
	CriticalThresholdBytes int64 `json:"critical_threshold_bytes" yaml:"critical_threshold_bytes"`

	// MonitoringInterval is how often the system memory monitor samples.
	MonitoringInterval Duration `json:"monitoring_interval,omitempty" yaml:"monitoring_interval,omitempty"`

	// Strategy selects the eviction ordering.
	Strategy Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
}

// LoggingConfig holds configuration for file logging.
type LoggingConfig struct {
	ToFile bool   `json:"to_file,omitempty" yaml:"to_file,omitempty"`
	File   string `json:"file,omitempty"    yaml:"file,omitempty"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Memory.MemoryThresholdBytes <= 0 {
		return errors.New("memory_threshold_bytes must be positive")
	}
	if c.Memory.CriticalThresholdBytes <= 0 {
		return errors.New("critical_threshold_bytes must be positive")
	}
	if c.Memory.CriticalThresholdBytes >= c.Memory.MemoryThresholdBytes {
		return fmt.Errorf("critical_threshold_bytes (%d) must be lower than memory_threshold_bytes (%d)",
			c.Memory.CriticalThresholdBytes, c.Memory.MemoryThresholdBytes)
	}
	if c.Memory.MonitoringInterval < 0 {
		return errors.New("monitoring_interval must not be negative")
	}
	if c.Memory.Strategy != "" && !c.Memory.Strategy.IsValid() {
		return fmt.Errorf("unknown eviction strategy %q", c.Memory.Strategy)
	}

	return nil
}

// withDefaults fills in zero-valued optional fields.
func (c *Config) withDefaults() *Config {
	if c.Memory.MonitoringInterval == 0 {
		c.Memory.MonitoringInterval = Duration(DefaultMonitoringInterval)
	}
	if c.Memory.Strategy == "" {
		c.Memory.Strategy = StrategyLRU
	}
	return c
}
