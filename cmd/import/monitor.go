package main

import (
	"runtime"
	"sync"
	"time"

	"github.com/farxc/separacao-pedidos/internal/logger"
	"github.com/farxc/separacao-pedidos/internal/sheet"
)

// importProfile relates peak heap usage to the amount of sheet data decoded.
type importProfile struct {
	Sheets         int
	Rows           int
	Cells          int
	PeakGoroutines int
	PeakHeapMB     uint64
	Samples        int
}

// BytesPerCell is the peak heap divided by the decoded cells, or 0 without cells.
func (p importProfile) BytesPerCell() uint64 {
	if p.Cells == 0 {
		return 0
	}
	return (p.PeakHeapMB << 20) / uint64(p.Cells)
}

// MemoryMonitor samples the heap while sheets are decoded and applied. A nil
// monitor ignores every call, so the importer does not check -profile itself.
type MemoryMonitor struct {
	mu      sync.Mutex
	profile importProfile
	stop    chan struct{}
	done    chan struct{}
}

func NewMonitor() *MemoryMonitor {
	return &MemoryMonitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (m *MemoryMonitor) Start(interval time.Duration, appLogger *logger.Logger) {
	if m == nil {
		return
	}
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.sample(appLogger)
			case <-m.stop:
				m.sample(appLogger)
				return
			}
		}
	}()
}

// Observe records a decoded sheet.
func (m *MemoryMonitor) Observe(grid sheet.Grid) {
	if m == nil {
		return
	}
	cells := 0
	for _, row := range grid {
		cells += len(row)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile.Sheets++
	m.profile.Rows += len(grid)
	m.profile.Cells += cells
}

func (m *MemoryMonitor) sample(appLogger *logger.Logger) {
	const component = "Monitor"

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	heapMB := ms.HeapInuse >> 20
	goroutines := runtime.NumGoroutine()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.profile.Samples++
	m.profile.PeakHeapMB = max(m.profile.PeakHeapMB, heapMB)
	m.profile.PeakGoroutines = max(m.profile.PeakGoroutines, goroutines)

	appLogger.Debug(component, "Sample: heapMB=%d goroutines=%d rows=%d cells=%d", heapMB, goroutines, m.profile.Rows, m.profile.Cells)
}

// Stop takes a last sample and returns the profile. Start must have been called.
func (m *MemoryMonitor) Stop() importProfile {
	if m == nil {
		return importProfile{}
	}
	close(m.stop)
	<-m.done

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}
