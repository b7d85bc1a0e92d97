package status

import "github.com/rs/zerolog"

// Registry holds the health collectors contributing to status reports.
type Registry struct {
	collectors map[string]Collector
}

func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
	}
}

// Register adds a collector, replacing any earlier one with the same name.
func (r *Registry) Register(collector Collector) {
	r.collectors[collector.Name()] = collector
}

// Enabled returns the collectors the configuration turns on.
func (r *Registry) Enabled(config Config) []Collector {
	enabled := make([]Collector, 0, len(r.collectors))
	for _, collector := range r.collectors {
		if collector.Enabled(config) {
			enabled = append(enabled, collector)
		}
	}
	return enabled
}

// DefaultRegistry returns a registry with every built-in collector.
func DefaultRegistry(logger zerolog.Logger) *Registry {
	registry := NewRegistry()
	registry.Register(&CPUCollector{Logger: logger})
	registry.Register(&MemoryCollector{Logger: logger})
	registry.Register(&UptimeCollector{Logger: logger})
	registry.Register(&GoroutineCollector{Logger: logger})
	return registry
}
