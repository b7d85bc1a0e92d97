package geolocation

import "time"

// Position is a single geographic fix produced by a positioning source.
// Immutable once constructed; Accuracy is the estimated horizontal error
// in meters as reported by the source.
type Position struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	CapturedAt time.Time `json:"captured_at"`
}

// Defaults for one-shot fixes and continuous watches.
const (
	DefaultFixTimeout    = 15 * time.Second
	DefaultFixMaximumAge = 10 * time.Second

	DefaultWatchDistanceFilter  = 50.0 // meters
	DefaultWatchInterval        = 30 * time.Second
	DefaultWatchFastestInterval = 10 * time.Second
)

// FixOptions control a one-shot position request.
type FixOptions struct {
	// HighAccuracy asks the source for its best fix. Advisory: sources
	// that have a single accuracy mode ignore it.
	HighAccuracy bool

	// Timeout bounds the wait for a fresh fix. Zero means DefaultFixTimeout.
	Timeout time.Duration

	// MaximumAge allows a cached fix no older than this to be returned
	// without touching the source. Zero disables the cache.
	MaximumAge time.Duration
}

// DefaultFixOptions returns the standard one-shot request settings:
// high accuracy, 15s timeout, cached fixes up to 10s old.
func DefaultFixOptions() FixOptions {
	return FixOptions{
		HighAccuracy: true,
		Timeout:      DefaultFixTimeout,
		MaximumAge:   DefaultFixMaximumAge,
	}
}

// WatchOptions control a continuous position watch.
type WatchOptions struct {
	// HighAccuracy asks the source for its best fixes. The default watch
	// runs in the battery-efficient mode, so this is normally false.
	HighAccuracy bool

	// DistanceFilter suppresses deliveries closer than this many meters
	// to the previously delivered fix. Zero disables the filter.
	DistanceFilter float64

	// Interval is the polling cadence for sources that poll. Stream
	// sources (a serial GPS emitting sentences) deliver at the device's
	// own rate, still bounded below by FastestInterval.
	Interval time.Duration

	// FastestInterval is the minimum gap between two deliveries.
	FastestInterval time.Duration
}

// DefaultWatchOptions returns the battery-efficient watch settings:
// reduced accuracy, 50m distance filter, 30s interval, 10s fastest interval.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		HighAccuracy:    false,
		DistanceFilter:  DefaultWatchDistanceFilter,
		Interval:        DefaultWatchInterval,
		FastestInterval: DefaultWatchFastestInterval,
	}
}
