package status

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/host"
)

// UptimeCollector reports host uptime in seconds.
type UptimeCollector struct {
	Logger zerolog.Logger
}

func (u *UptimeCollector) Name() string {
	return "uptime"
}

func (u *UptimeCollector) Collect(ctx context.Context) *float64 {
	uptime, err := host.Uptime()
	if err != nil {
		u.Logger.Error().Err(err).Msg("Failed to retrieve host uptime")
		return nil
	}

	seconds := float64(uptime)
	u.Logger.Debug().Float64("uptime_seconds", seconds).Msg("Host uptime collected")
	return &seconds
}

func (u *UptimeCollector) Enabled(config Config) bool {
	return config.MonitorUptime
}
