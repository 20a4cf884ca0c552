package memory

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ekisa-team/modelmem/internal/config"
)

// PressureLevel grades how scarce available memory currently is.
type PressureLevel int

const (
	// PressureLow requires no action.
	PressureLow PressureLevel = iota

	// PressureMedium requires no action.
	PressureMedium

	// PressureHigh frees up to half the warning threshold.
	PressureHigh

	// PressureWarning frees up to the warning threshold.
	PressureWarning

	// PressureCritical frees up to twice the warning threshold, ignoring
	// priority protection.
	PressureCritical
)

// String returns the string representation of the pressure level.
func (l PressureLevel) String() string {
	switch l {
	case PressureLow:
		return "low"
	case PressureMedium:
		return "medium"
	case PressureHigh:
		return "high"
	case PressureWarning:
		return "warning"
	case PressureCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// TargetFree returns how many bytes the level aims to free under the
// given configuration.
func (l PressureLevel) TargetFree(cfg *config.Config) int64 {
	switch l {
	case PressureHigh:
		return cfg.Memory.MemoryThresholdBytes / 2
	case PressureWarning:
		return cfg.Memory.MemoryThresholdBytes
	case PressureCritical:
		return cfg.Memory.MemoryThresholdBytes * 2
	default:
		return 0
	}
}

// Responder turns pressure signals into evictions. It keeps no state
// between invocations; every call is a complete cycle.
type Responder struct {
	registry   *Registry
	selector   VictimSelector
	cfg        *config.Store
	notifier   *Notifier
	sysCleanup func()
}

// NewResponder creates a pressure responder. A nil selector is tolerated
// but logged as a configuration error on every eviction attempt.
func NewResponder(registry *Registry, selector VictimSelector, cfg *config.Store, notifier *Notifier) *Responder {
	return &Responder{
		registry: registry,
		selector: selector,
		cfg:      cfg,
		notifier: notifier,
		// Under critical pressure, return freed pages to the OS.
		sysCleanup: func() { debug.FreeOSMemory() },
	}
}

// SetSystemCleanupHook replaces the best-effort cleanup run under critical
// pressure.
func (p *Responder) SetSystemCleanupHook(fn func()) {
	p.sysCleanup = fn
}

// HandlePressure runs one pressure-handling cycle: evict caller-suggested
// victims first, then ask the selector to cover the remaining target.
// It always returns the freed byte count and always emits an event.
func (p *Responder) HandlePressure(ctx context.Context, level PressureLevel, suggested []string) int64 {
	start := time.Now()
	freed := p.handle(ctx, level, suggested)

	p.notifier.Publish(Event{
		Level:      level,
		FreedBytes: freed,
		Duration:   time.Since(start),
	})

	slog.Info("Memory pressure handled",
		"level", level, "freed_bytes", freed, "duration", time.Since(start))

	return freed
}

func (p *Responder) handle(ctx context.Context, level PressureLevel, suggested []string) int64 {
	if level <= PressureMedium {
		return 0
	}

	var freed int64
	if len(suggested) > 0 {
		freed = p.registry.UnloadAll(ctx, suggested)
	}

	if target := level.TargetFree(p.cfg.Load()); freed < target {
		freed += p.selectAndEvict(ctx, target-freed, level == PressureCritical)
	}

	if level == PressureCritical && p.sysCleanup != nil {
		p.sysCleanup()
	}

	return freed
}

// HandleSystemMemoryWarning reacts to an OS-level low-memory notification.
// It always maps to critical pressure.
func (p *Responder) HandleSystemMemoryWarning(ctx context.Context) int64 {
	slog.Warn("System low-memory warning received")
	return p.HandlePressure(ctx, PressureCritical, nil)
}

// Reclaim frees up to targetBytes by evicting models strictly below the
// given priority, so same-or-higher-priority models are protected. Used by
// the registry's RequestMemory path.
func (p *Responder) Reclaim(ctx context.Context, targetBytes int64, below Priority) int64 {
	if p.selector == nil {
		slog.Error("No eviction selector configured, cannot reclaim memory")
		return 0
	}

	var candidates []Record
	for _, r := range p.registry.Loaded() {
		if r.Priority < below {
			candidates = append(candidates, r)
		}
	}

	strategy := p.cfg.Load().Memory.Strategy
	victims := p.selector.SelectVictims(candidates, targetBytes, strategy, false)
	if len(victims) == 0 {
		return 0
	}

	return p.registry.UnloadAll(ctx, victims)
}

func (p *Responder) selectAndEvict(ctx context.Context, targetBytes int64, aggressive bool) int64 {
	if p.selector == nil {
		slog.Error("No eviction selector configured, skipping eviction")
		return 0
	}

	strategy := p.cfg.Load().Memory.Strategy
	victims := p.selector.SelectVictims(p.registry.Loaded(), targetBytes, strategy, aggressive)
	if len(victims) == 0 {
		return 0
	}

	slog.Info("Evicting models under pressure",
		"victims", len(victims), "target_bytes", targetBytes, "strategy", strategy, "aggressive", aggressive)

	return p.registry.UnloadAll(ctx, victims)
}
