package task

import (
	"runtime"
	"sync"
	"time"
)

// SystemGauges are process-level resource readings.
type SystemGauges struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	Goroutines  int     `json:"goroutines"`
}

// SystemSampler reads SystemGauges.
type SystemSampler interface {
	Sample() SystemGauges
}

// RuntimeSampler reports this process's CPU share since the previous sample,
// heap in use as a percentage of memory obtained from the OS, and the
// goroutine count. The first sample reports zero CPU.
type RuntimeSampler struct {
	mu       sync.Mutex
	lastCPU  time.Duration
	lastWall time.Time
}

// NewRuntimeSampler returns a sampler backed by the Go runtime.
func NewRuntimeSampler() *RuntimeSampler {
	return &RuntimeSampler{}
}

// Sample takes a reading. It stops the world briefly to read memory stats.
func (r *RuntimeSampler) Sample() SystemGauges {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	g := SystemGauges{Goroutines: runtime.NumGoroutine()}
	if ms.Sys > 0 {
		g.MemoryUsage = clampPercent(float64(ms.HeapInuse) / float64(ms.Sys) * 100)
	}

	used, ok := processCPUTime()
	if !ok {
		return g
	}

	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.lastWall.IsZero() {
		if wall := now.Sub(r.lastWall); wall > 0 {
			share := float64(used-r.lastCPU) / float64(wall) / float64(runtime.NumCPU())
			g.CPUUsage = clampPercent(share * 100)
		}
	}
	r.lastCPU = used
	r.lastWall = now
	return g
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
