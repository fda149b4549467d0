// Package monitor reports the statbox process's own resource usage as gauges.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/neox5/statbox/internal/stats"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	StatCPUPercent = "statbox.process.cpu_percent"
	StatGoroutines = "statbox.process.goroutines"
	StatHeapAlloc  = "statbox.process.heap_alloc_bytes"
	StatHeapSys    = "statbox.process.heap_sys_bytes"
	StatNumGC      = "statbox.process.num_gc"
)

// Monitor samples process and runtime statistics on a fixed interval.
type Monitor struct {
	interval time.Duration
	logger   *slog.Logger
	sink     stats.Stats
	proc     *process.Process
	wg       sync.WaitGroup
}

// New creates a monitor writing gauges to sink.
func New(interval time.Duration, logger *slog.Logger, sink stats.Stats) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process handle: %w", err)
	}

	return &Monitor{
		interval: interval,
		logger:   logger.With("component", "monitor"),
		sink:     sink,
		proc:     proc,
	}, nil
}

// Start samples immediately and then once per interval until ctx is
// cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.Run(ctx)
	m.Wait()
	return nil
}

// Run starts the sampling loop in a background goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.wg.Go(func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.collect()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("monitor shutdown complete")
				return
			case <-ticker.C:
				m.collect()
			}
		}
	})
}

// Wait blocks until the monitor goroutine exits.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

func (m *Monitor) collect() {
	cpu, err := m.proc.CPUPercent()
	if err != nil {
		m.logger.Warn("failed to get CPU percent", "error", err)
		cpu = 0
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	goroutines := runtime.NumGoroutine()

	m.sink.Gauge(StatCPUPercent, cpu, 1, false)
	m.sink.GaugeInt(StatGoroutines, int64(goroutines), 1, false)
	m.sink.GaugeInt(StatHeapAlloc, int64(ms.HeapAlloc), 1, false)
	m.sink.GaugeInt(StatHeapSys, int64(ms.HeapSys), 1, false)
	m.sink.GaugeInt(StatNumGC, int64(ms.NumGC), 1, false)

	cores := runtime.GOMAXPROCS(-1)
	utilization := cpu / float64(cores*100)

	m.logger.Debug("resource",
		"cpu", fmt.Sprintf("%.2f%%", cpu),
		"gor", goroutines,
		"alloc_mb", fmt.Sprintf("%.2f", float64(ms.HeapAlloc)/(1024*1024)),
		"gc", ms.NumGC,
	)

	if utilization > 0.95 {
		m.logger.Warn("cpu saturation detected",
			"cpu", cpu,
			"util_pct", utilization*100,
			"action", "reduce load or increase GOMAXPROCS",
		)
	}
}
