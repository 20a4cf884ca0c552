package config

import "sync/atomic"

// Store holds the active configuration as an immutable snapshot.
// Readers always observe a complete config; Swap replaces it wholesale.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store seeded with the given config.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	if cfg == nil {
		cfg = Default()
	}
	s.current.Store(cfg)
	return s
}

// Load returns the current config snapshot. Callers must not mutate it.
func (s *Store) Load() *Config {
	return s.current.Load()
}

// Swap replaces the current config snapshot. Last write wins.
func (s *Store) Swap(cfg *Config) {
	if cfg == nil {
		return
	}
	s.current.Store(cfg)
}
