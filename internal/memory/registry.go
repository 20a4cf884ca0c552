package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryReader reports device memory readings.
type MemoryReader interface {
	TotalMemory() int64
	AvailableMemory() int64
}

// Reclaimer frees memory on behalf of a requester, evicting only victims
// strictly below the given priority.
type Reclaimer interface {
	Reclaim(ctx context.Context, targetBytes int64, below Priority) int64
}

type entry struct {
	record  Record
	cleanup CleanupFunc
}

// Registry is the authoritative map of loaded-model accounting records.
//
// All map access happens under a single short-held mutex. The lock is
// released before any cleanup invocation or reclamation call, so a cleanup
// that calls back into the registry cannot deadlock.
type Registry struct {
	mem MemoryReader

	mu        sync.Mutex
	models    map[string]*entry
	reclaimer Reclaimer
}

// NewRegistry creates a registry backed by the given memory reader.
func NewRegistry(mem MemoryReader) *Registry {
	return &Registry{
		mem:    mem,
		models: make(map[string]*entry),
	}
}

// SetReclaimer wires the reclamation path used by RequestMemory.
func (r *Registry) SetReclaimer(rec Reclaimer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reclaimer = rec
}

// Register inserts or replaces the accounting record for a model.
func (r *Registry) Register(id, displayName string, sizeBytes int64, priority Priority, cleanup CleanupFunc) error {
	if id == "" {
		return ErrEmptyModelID
	}
	if sizeBytes <= 0 {
		return ErrInvalidSize
	}

	now := time.Now()

	r.mu.Lock()
	r.models[id] = &entry{
		record: Record{
			ID:           id,
			DisplayName:  displayName,
			SizeBytes:    sizeBytes,
			Priority:     priority,
			RegisteredAt: now,
			LastUsedAt:   now,
		},
		cleanup: cleanup,
	}
	r.mu.Unlock()

	slog.Debug("Model registered", "model_id", id, "size_bytes", sizeBytes, "priority", priority)
	return nil
}

// Unregister removes a record without invoking its cleanup; the caller has
// already torn the model down. No-op if absent.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.models[id]
	delete(r.models, id)
	r.mu.Unlock()

	if !ok {
		slog.Debug("Unregister of unknown model", "model_id", id)
		return
	}

	slog.Debug("Model unregistered", "model_id", id)
}

// Touch marks a model as recently used. No-op if absent.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.models[id]
	if !ok {
		slog.Debug("Touch of unknown model", "model_id", id)
		return
	}

	// Guard against clock adjustments: last-use never goes backwards.
	if now := time.Now(); now.After(e.record.LastUsedAt) {
		e.record.LastUsedAt = now
	}
}

// RequestMemory reports whether sizeBytes of device memory is available,
// evicting lower-priority models if needed. A false return is a normal
// outcome the caller must handle, not an error.
func (r *Registry) RequestMemory(ctx context.Context, sizeBytes int64, priority Priority) bool {
	if sizeBytes <= 0 {
		return true
	}

	available := r.mem.AvailableMemory()
	if available >= sizeBytes {
		return true
	}

	r.mu.Lock()
	reclaimer := r.reclaimer
	r.mu.Unlock()

	if reclaimer == nil {
		slog.Error("No reclaimer wired, cannot free memory for request", "size_bytes", sizeBytes)
		return false
	}

	needed := sizeBytes - available
	freed := reclaimer.Reclaim(ctx, needed, priority)

	slog.Debug("Reclaimed memory for request",
		"size_bytes", sizeBytes, "needed_bytes", needed, "freed_bytes", freed)

	return r.mem.AvailableMemory() >= sizeBytes
}

// Unload removes a model's record and asynchronously invokes its cleanup.
// It returns the freed size immediately upon removal; accounting is
// credited back before the cleanup completes. Returns 0 if absent.
func (r *Registry) Unload(ctx context.Context, id string) int64 {
	r.mu.Lock()
	e, ok := r.models[id]
	if ok {
		delete(r.models, id)
	}
	r.mu.Unlock()

	if !ok {
		slog.Debug("Unload of unknown model", "model_id", id)
		return 0
	}

	if e.cleanup != nil {
		// Cleanup is fire-and-forget and non-cancellable once started.
		cleanupCtx := context.WithoutCancel(ctx)
		go e.cleanup(cleanupCtx)
	}

	slog.Info("Model unloaded", "model_id", id, "size_bytes", e.record.SizeBytes)
	return e.record.SizeBytes
}

// UnloadAll unloads the given models in order and returns the total freed
// bytes. Victims evicted front-first keep eviction ordering fair.
func (r *Registry) UnloadAll(ctx context.Context, ids []string) int64 {
	var freed int64
	for _, id := range ids {
		freed += r.Unload(ctx, id)
	}
	return freed
}

// TotalModelMemory returns the summed size of all registered records.
func (r *Registry) TotalModelMemory() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, e := range r.models {
		total += e.record.SizeBytes
	}
	return total
}

// Count returns the number of registered records.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.models)
}

// Loaded returns a point-in-time snapshot of all records.
func (r *Registry) Loaded() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]Record, 0, len(r.models))
	for _, e := range r.models {
		records = append(records, e.record)
	}
	return records
}

// IsLoaded reports whether a model is registered.
func (r *Registry) IsLoaded(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.models[id]
	return ok
}

// MemoryUsage returns the registered size of a model.
func (r *Registry) MemoryUsage(id string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.models[id]
	if !ok {
		return 0, false
	}
	return e.record.SizeBytes, true
}
