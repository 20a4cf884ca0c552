package memory

import (
	"slices"
	"sync"
	"time"
)

// Event describes a completed pressure-handling cycle.
type Event struct {
	Level      PressureLevel `json:"level"`
	FreedBytes int64         `json:"freed_bytes"`
	Duration   time.Duration `json:"duration"`
}

// Notifier broadcasts pressure events to subscribers. Dispatch is
// fire-and-forget: a slow subscriber never blocks pressure handling.
type Notifier struct {
	mu   sync.RWMutex
	subs []func(Event)
}

// NewNotifier creates a new notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for pressure events.
func (n *Notifier) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.subs = append(n.subs, fn)
}

// Publish delivers an event to all subscribers without blocking.
func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	subs := slices.Clone(n.subs)
	n.mu.RUnlock()

	for _, fn := range subs {
		go fn(e)
	}
}
