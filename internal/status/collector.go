package status

import "context"

// Config enables individual health collectors.
type Config struct {
	MonitorCPU        bool `yaml:"monitor_cpu"`
	MonitorMemory     bool `yaml:"monitor_memory"`
	MonitorUptime     bool `yaml:"monitor_uptime"`
	MonitorGoroutines bool `yaml:"monitor_goroutines"`
}

// DefaultConfig enables every collector.
func DefaultConfig() Config {
	return Config{
		MonitorCPU:        true,
		MonitorMemory:     true,
		MonitorUptime:     true,
		MonitorGoroutines: true,
	}
}

// Collector gathers one health metric for the periodic status report.
type Collector interface {
	// Name identifies the metric (e.g. "cpu", "memory").
	Name() string
	// Collect returns the metric value, or nil when it could not be
	// gathered. Failures are logged by the collector itself.
	Collect(ctx context.Context) *float64
	// Enabled reports whether the configuration turns this collector on.
	Enabled(config Config) bool
}
