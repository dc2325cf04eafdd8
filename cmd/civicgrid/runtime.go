package main

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// logRuntimeStats logs memory and goroutine counters every interval until ctx is done.
func logRuntimeStats(ctx context.Context, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		logger.Info("runtime stats",
			zap.Int("goroutines", runtime.NumGoroutine()),
			zap.Float64("alloc_mb", float64(m.Alloc)/1024/1024),
			zap.Float64("sys_mb", float64(m.Sys)/1024/1024),
			zap.Uint64("heap_objects", m.HeapObjects),
			zap.Uint32("num_gc", m.NumGC),
		)
	}
}
