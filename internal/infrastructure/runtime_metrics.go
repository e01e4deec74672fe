package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a snapshot of process statistics
type RuntimeStats struct {
	GoRoutines    int64
	HeapAlloc     int64
	SystemMemory  int64
	GCCount       uint32
	ProcessUptime time.Duration
	Timestamp     time.Time
}

// Map renders the snapshot for health responses
func (s RuntimeStats) Map() map[string]interface{} {
	return map[string]interface{}{
		"goroutines":       s.GoRoutines,
		"heap_alloc_mb":    s.HeapAlloc / 1024 / 1024,
		"memory_system_mb": s.SystemMemory / 1024 / 1024,
		"gc_count":         s.GCCount,
		"uptime_seconds":   int64(s.ProcessUptime.Seconds()),
	}
}

// RuntimeCollector records Go runtime gauges periodically
type RuntimeCollector struct {
	goRoutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	uptime     metric.Float64Gauge

	startTime time.Time
	interval  time.Duration
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewRuntimeCollector creates the gauges on meter
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}

	heapAlloc, err := meter.Int64Gauge(
		"system_memory_usage_bytes",
		metric.WithDescription("Heap bytes allocated and in use"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory gauge: %w", err)
	}

	uptime, err := meter.Float64Gauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &RuntimeCollector{
		goRoutines: goRoutines,
		heapAlloc:  heapAlloc,
		uptime:     uptime,
		startTime:  time.Now(),
		interval:   interval,
		stopCh:     make(chan struct{}),
	}, nil
}

// Collect takes a snapshot and records it
func (c *RuntimeCollector) Collect(ctx context.Context) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		GoRoutines:    int64(runtime.NumGoroutine()),
		HeapAlloc:     int64(mem.HeapAlloc),
		SystemMemory:  int64(mem.Sys),
		GCCount:       mem.NumGC,
		ProcessUptime: time.Since(c.startTime),
		Timestamp:     time.Now(),
	}

	c.goRoutines.Record(ctx, stats.GoRoutines)
	c.heapAlloc.Record(ctx, stats.HeapAlloc)
	c.uptime.Record(ctx, stats.ProcessUptime.Seconds())

	return stats
}

// Start collects until ctx is done or Stop is called
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection; safe to call more than once
func (c *RuntimeCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
