package status

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"
)

// MemoryCollector reports the percentage of used virtual memory.
type MemoryCollector struct {
	Logger zerolog.Logger
}

func (m *MemoryCollector) Name() string {
	return "memory"
}

func (m *MemoryCollector) Collect(ctx context.Context) *float64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to retrieve memory statistics")
		return nil
	}

	m.Logger.Debug().Float64("memory_usage_percent", stats.UsedPercent).Msg("Memory usage collected")
	return &stats.UsedPercent
}

func (m *MemoryCollector) Enabled(config Config) bool {
	return config.MonitorMemory
}
