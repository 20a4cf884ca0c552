package memory

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ekisa-team/modelmem/internal/config"
	"github.com/ekisa-team/modelmem/internal/sysmon"
)

// Statistics summarizes the memory subsystem state.
type Statistics struct {
	TotalMemory      int64 `json:"total_memory"`
	AvailableMemory  int64 `json:"available_memory"`
	ModelMemory      int64 `json:"model_memory"`
	LoadedModelCount int   `json:"loaded_model_count"`
	UnderPressure    bool  `json:"under_pressure"`
}

// Coordinator is the public facade of the memory subsystem. It wires the
// registry, selector, responder and monitor together.
type Coordinator struct {
	cfg       *config.Store
	registry  *Registry
	responder *Responder
	notifier  *Notifier
	monitor   sysmon.Monitor

	// requested tracks memory granted through RequestMemory and returned
	// through ReleaseMemory. Accounting only.
	requested  atomic.Int64
	monitoring atomic.Bool
}

// NewCoordinator creates and wires the memory subsystem.
func NewCoordinator(monitor sysmon.Monitor, cfg *config.Config) *Coordinator {
	store := config.NewStore(cfg)
	registry := NewRegistry(monitor)
	notifier := NewNotifier()
	responder := NewResponder(registry, Selector{}, store, notifier)
	registry.SetReclaimer(responder)

	return &Coordinator{
		cfg:       store,
		registry:  registry,
		responder: responder,
		notifier:  notifier,
		monitor:   monitor,
	}
}

// Registry returns the allocation registry.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Responder returns the pressure responder.
func (c *Coordinator) Responder() *Responder {
	return c.responder
}

// Configure replaces the active configuration wholesale. Last write wins;
// in-flight pressure handling keeps the snapshot it started with.
func (c *Coordinator) Configure(cfg *config.Config) {
	if cfg == nil {
		return
	}

	c.cfg.Swap(cfg)

	slog.Info("Memory subsystem reconfigured",
		"memory_threshold_bytes", cfg.Memory.MemoryThresholdBytes,
		"critical_threshold_bytes", cfg.Memory.CriticalThresholdBytes,
		"strategy", cfg.Memory.Strategy,
		"monitoring_interval", cfg.Memory.MonitoringInterval.Std())

	// Pick up a changed interval without requiring a restart.
	if c.monitoring.Load() {
		c.StartMonitoring()
	}
}

// RegisterModel records a loaded model and immediately checks memory
// conditions, so a registration that tips the device over a threshold
// triggers eviction right away.
func (c *Coordinator) RegisterModel(ctx context.Context, id, displayName string, sizeBytes int64, priority Priority, cleanup CleanupFunc) error {
	if err := c.registry.Register(id, displayName, sizeBytes, priority, cleanup); err != nil {
		return err
	}

	c.CheckMemoryConditions(ctx)
	return nil
}

// UnregisterModel removes a model's record without invoking its cleanup.
func (c *Coordinator) UnregisterModel(id string) {
	c.registry.Unregister(id)
}

// TouchModel marks a model as recently used.
func (c *Coordinator) TouchModel(id string) {
	c.registry.Touch(id)
}

// RequestMemory reports whether sizeBytes can be satisfied, evicting
// lower-priority models if needed.
func (c *Coordinator) RequestMemory(ctx context.Context, sizeBytes int64, priority Priority) bool {
	granted := c.registry.RequestMemory(ctx, sizeBytes, priority)
	if granted {
		c.requested.Add(sizeBytes)
	}
	return granted
}

// ReleaseMemory returns previously requested memory. Accounting only; the
// caller has already freed the actual memory.
func (c *Coordinator) ReleaseMemory(sizeBytes int64) {
	if sizeBytes <= 0 {
		return
	}

	if outstanding := c.requested.Add(-sizeBytes); outstanding < 0 {
		slog.Debug("Released more memory than requested", "outstanding_bytes", outstanding)
		c.requested.Store(0)
	}
}

// RequestedMemory returns the outstanding request-accounted bytes.
func (c *Coordinator) RequestedMemory() int64 {
	if v := c.requested.Load(); v > 0 {
		return v
	}
	return 0
}

// CheckMemoryConditions compares available memory against the configured
// thresholds and triggers the matching pressure response.
func (c *Coordinator) CheckMemoryConditions(ctx context.Context) {
	cfg := c.cfg.Load()
	available := c.monitor.AvailableMemory()

	switch {
	case available < cfg.Memory.CriticalThresholdBytes:
		slog.Warn("Available memory below critical threshold",
			"available_bytes", available, "critical_threshold_bytes", cfg.Memory.CriticalThresholdBytes)
		c.responder.HandlePressure(ctx, PressureCritical, nil)
	case available < cfg.Memory.MemoryThresholdBytes:
		c.responder.HandlePressure(ctx, PressureWarning, nil)
	}
}

// HandleSystemMemoryWarning reacts to an OS-level low-memory notification.
func (c *Coordinator) HandleSystemMemoryWarning(ctx context.Context) int64 {
	return c.responder.HandleSystemMemoryWarning(ctx)
}

// StartMonitoring subscribes to periodic memory snapshots; each tick
// re-runs the threshold check.
func (c *Coordinator) StartMonitoring() {
	interval := c.cfg.Load().Memory.MonitoringInterval.Std()

	c.monitor.StartMonitoring(interval, func(s sysmon.Snapshot) {
		c.CheckMemoryConditions(context.Background())
	})
	c.monitoring.Store(true)

	slog.Info("Memory monitoring started", "interval", interval)
}

// StopMonitoring unsubscribes from periodic memory snapshots.
func (c *Coordinator) StopMonitoring() {
	c.monitor.StopMonitoring()
	c.monitoring.Store(false)

	slog.Info("Memory monitoring stopped")
}

// ModelsByImportance returns the loaded models ranked least important
// first, by eviction score.
func (c *Coordinator) ModelsByImportance() []Record {
	return RankByImportance(c.registry.Loaded(), time.Now())
}

// EvictLeastImportant unloads the n least important models and returns the
// freed bytes.
func (c *Coordinator) EvictLeastImportant(ctx context.Context, n int) int64 {
	victims := LeastImportant(c.registry.Loaded(), n, time.Now())
	if len(victims) == 0 {
		return 0
	}

	slog.Info("Evicting least important models", "count", len(victims))
	return c.registry.UnloadAll(ctx, victims)
}

// Subscribe registers an observer for pressure-handled events.
func (c *Coordinator) Subscribe(fn func(Event)) {
	c.notifier.Subscribe(fn)
}

// Statistics returns a snapshot of the memory subsystem state.
func (c *Coordinator) Statistics() Statistics {
	cfg := c.cfg.Load()
	available := c.monitor.AvailableMemory()

	return Statistics{
		TotalMemory:      c.monitor.TotalMemory(),
		AvailableMemory:  available,
		ModelMemory:      c.registry.TotalModelMemory(),
		LoadedModelCount: c.registry.Count(),
		UnderPressure:    available < cfg.Memory.MemoryThresholdBytes,
	}
}
