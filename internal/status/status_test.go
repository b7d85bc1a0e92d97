package status

import (
	"context"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestGoroutineCollector tests that the goroutine count is always available and
// positive.
func TestGoroutineCollector(t *testing.T) {
	collector := &GoroutineCollector{Logger: zerolog.Nop()}

	value := collector.Collect(context.Background())

	assert.NotNil(t, value)
	assert.GreaterOrEqual(t, *value, 1.0)
	assert.Equal(t, "goroutines", collector.Name())
}

// TestMemoryCollector tests that used-memory percentage is gathered and plausible.
func TestMemoryCollector(t *testing.T) {
	collector := &MemoryCollector{Logger: zerolog.Nop()}

	value := collector.Collect(context.Background())

	assert.NotNil(t, value)
	assert.Greater(t, *value, 0.0)
	assert.LessOrEqual(t, *value, 100.0)
}

// TestUptimeCollector tests that host uptime is gathered and positive.
func TestUptimeCollector(t *testing.T) {
	collector := &UptimeCollector{Logger: zerolog.Nop()}

	value := collector.Collect(context.Background())

	assert.NotNil(t, value)
	assert.Greater(t, *value, 0.0)
}

// TestCPUCollector tests that CPU utilization is gathered.
func TestCPUCollector(t *testing.T) {
	collector := &CPUCollector{Logger: zerolog.Nop()}

	value := collector.Collect(context.Background())

	assert.NotNil(t, value)
	assert.GreaterOrEqual(t, *value, 0.0)
}

// TestRegistry_Enabled tests that the registry filters collectors by configuration.
func TestRegistry_Enabled(t *testing.T) {
	// Setup
	registry := DefaultRegistry(zerolog.Nop())
	config := Config{MonitorMemory: true, MonitorGoroutines: true}

	// Execute
	enabled := registry.Enabled(config)

	// Assert
	names := make([]string, 0, len(enabled))
	for _, collector := range enabled {
		names = append(names, collector.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"goroutines", "memory"}, names)
}

// TestRegistry_ReplacesByName tests that registering a collector twice keeps only the
// latest one.
func TestRegistry_ReplacesByName(t *testing.T) {
	// Setup
	registry := NewRegistry()
	first := &GoroutineCollector{Logger: zerolog.Nop()}
	second := &GoroutineCollector{Logger: zerolog.Nop()}

	// Execute
	registry.Register(first)
	registry.Register(second)

	// Assert
	enabled := registry.Enabled(DefaultConfig())
	assert.Len(t, enabled, 1)
	assert.Same(t, second, enabled[0])
}

// TestDefaultRegistry tests that the default configuration enables every built-in
// collector.
func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry(zerolog.Nop())

	enabled := registry.Enabled(DefaultConfig())

	assert.Len(t, enabled, 4)
}
