package memory

import (
	"context"
	"time"
)

// Priority ranks a model's resistance to eviction. Higher values are
// evicted later.
type Priority int

const (
	// PriorityLow marks models that may be evicted first.
	PriorityLow Priority = iota

	// PriorityNormal is the default priority.
	PriorityNormal

	// PriorityHigh marks models that should survive routine pressure.
	PriorityHigh

	// PriorityCritical marks models protected from non-aggressive eviction.
	PriorityCritical
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// CleanupFunc releases a model's native resources. The registry invokes it
// at most once, asynchronously, and it has no failure channel; memory is
// credited back before it completes.
type CleanupFunc func(ctx context.Context)

// Record is the accounting entry for one loaded model. The registry owns
// accounting only; the model object's lifetime belongs to the caller.
type Record struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	SizeBytes    int64     `json:"size_bytes"`
	Priority     Priority  `json:"priority"`
	RegisteredAt time.Time `json:"registered_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
}
