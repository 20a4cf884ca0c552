// Package sysmon reports device memory readings for the memory subsystem.
package sysmon

import "time"

// Snapshot is a point-in-time view of device memory.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalBytes  int64     `json:"total_bytes"`
	FreeBytes   int64     `json:"free_bytes"`
	UsedPercent float64   `json:"used_percent"`
}

// Monitor reports device memory and can push periodic snapshots.
type Monitor interface {
	// TotalMemory returns the total device memory in bytes.
	TotalMemory() int64

	// AvailableMemory returns the currently available memory in bytes.
	AvailableMemory() int64

	// StartMonitoring begins pushing snapshots at the given interval.
	// Calling it while monitoring is already active restarts the loop.
	StartMonitoring(interval time.Duration, onSnapshot func(Snapshot))

	// StopMonitoring stops the periodic snapshot loop. No-op if not running.
	StopMonitoring()
}
