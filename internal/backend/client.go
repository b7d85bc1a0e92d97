package backend

import (
	"context"

	"github.com/nearwave/location-agent/internal/models"
)

// Client performs the agent's backend operations. Implementations stamp
// the request ID and device ID; callers leave those fields empty.
type Client interface {
	// UpdateLocation reports the device's position. A non-nil error
	// carries the backend's rejection message when one was given.
	UpdateLocation(ctx context.Context, report models.LocationReport) error

	// NearbyUsers returns users near the queried point, closest first.
	NearbyUsers(ctx context.Context, query models.NearbyQuery) ([]models.NearbyUser, error)
}
