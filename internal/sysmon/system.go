package sysmon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMonitor reads device memory via gopsutil.
type SystemMonitor struct {
	mu   sync.Mutex
	stop chan struct{}
}

// NewSystemMonitor creates a monitor backed by OS memory statistics.
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{}
}

// TotalMemory returns the total device memory in bytes.
func (m *SystemMonitor) TotalMemory() int64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		slog.Error("Failed to read virtual memory stats", "error", err)
		return 0
	}
	return int64(vm.Total)
}

// AvailableMemory returns the currently available memory in bytes.
func (m *SystemMonitor) AvailableMemory() int64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		slog.Error("Failed to read virtual memory stats", "error", err)
		return 0
	}
	return int64(vm.Available)
}

// StartMonitoring begins pushing snapshots at the given interval.
func (m *SystemMonitor) StartMonitoring(interval time.Duration, onSnapshot func(Snapshot)) {
	if interval <= 0 || onSnapshot == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	stop := make(chan struct{})
	m.stop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				vm, err := mem.VirtualMemory()
				if err != nil {
					slog.Error("Failed to read virtual memory stats", "error", err)
					continue
				}

				onSnapshot(Snapshot{
					Timestamp:   time.Now(),
					TotalBytes:  int64(vm.Total),
					FreeBytes:   int64(vm.Available),
					UsedPercent: vm.UsedPercent,
				})
			}
		}
	}()
}

// StopMonitoring stops the periodic snapshot loop.
func (m *SystemMonitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
}

func (m *SystemMonitor) stopLocked() {
	if m.stop == nil {
		return
	}

	close(m.stop)
	m.stop = nil
}
