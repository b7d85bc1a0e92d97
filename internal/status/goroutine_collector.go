package status

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"
)

// GoroutineCollector reports the number of active goroutines.
type GoroutineCollector struct {
	Logger zerolog.Logger
}

func (g *GoroutineCollector) Name() string {
	return "goroutines"
}

func (g *GoroutineCollector) Collect(ctx context.Context) *float64 {
	n := float64(runtime.NumGoroutine())
	g.Logger.Debug().Float64("goroutines", n).Msg("Goroutine count collected")
	return &n
}

func (g *GoroutineCollector) Enabled(config Config) bool {
	return config.MonitorGoroutines
}
