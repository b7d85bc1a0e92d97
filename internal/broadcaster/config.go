package broadcaster

import (
	"github.com/nearwave/location-agent/pkg/geolocation"
	"github.com/nearwave/location-agent/pkg/permissions"
)

// Config carries the broadcaster's tracking policy.
type Config struct {
	// PermissionKey is the permission required for position access.
	PermissionKey string

	// Rationale is shown when the permission must be prompted for.
	Rationale permissions.Rationale

	// Fix controls one-shot position requests.
	Fix geolocation.FixOptions

	// Watch controls the continuous tracking watch.
	Watch geolocation.WatchOptions

	// PauseInBackground stops the watch on background transitions and
	// restarts it on the next foreground. Off by default: tracking
	// continues in the background, trading battery for freshness.
	PauseInBackground bool
}

// DefaultConfig returns the standard tracking policy: high-accuracy
// one-shots, a battery-efficient watch, and background tracking on.
func DefaultConfig() Config {
	return Config{
		PermissionKey: permissions.KeyFineLocation,
		Rationale: permissions.Rationale{
			Title:   "Location Permission",
			Message: "Your location is used to show nearby users and keep your position up to date.",
		},
		Fix:               geolocation.DefaultFixOptions(),
		Watch:             geolocation.DefaultWatchOptions(),
		PauseInBackground: false,
	}
}
