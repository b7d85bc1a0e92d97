package models

import "time"

// StatusReport is the periodic agent health snapshot published to the
// backend. Metric fields are pointers so a failed collector omits its
// field instead of reporting zero.
type StatusReport struct {
	DeviceID      string    `json:"device_id"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	Tracking      bool      `json:"tracking"`
	CPUUsage      *float64  `json:"cpu_usage,omitempty"`
	Memory        *float64  `json:"memory,omitempty"`
	UptimeSeconds *float64  `json:"uptime_seconds,omitempty"`
	Goroutines    *float64  `json:"goroutines,omitempty"`
}
