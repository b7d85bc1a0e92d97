package actions

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/backend"
	"github.com/nearwave/location-agent/internal/models"
	"github.com/nearwave/location-agent/pkg/geolocation"
)

// Fallback messages for backend failures that carry no text of their own.
const (
	submitFallbackMessage = "Failed to update location."
	nearbyFallbackMessage = "Failed to fetch nearby users."
)

// Coordinates is the caller-supplied input for a location submission.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Actions exposes the two backend operations with a deliberately thin
// error contract: failures are flattened to plain message strings so
// callers can store them directly, with no backend error types leaking
// through. Each operation performs exactly one backend call, with no
// retries and no caching.
type Actions struct {
	backend backend.Client
	logger  zerolog.Logger
}

func New(client backend.Client, logger zerolog.Logger) *Actions {
	return &Actions{backend: client, logger: logger}
}

// SubmitLocation reports the given coordinates to the backend. The
// submitted position uses accuracy zero and the call time as its capture
// time, and is returned unchanged on success.
func (a *Actions) SubmitLocation(ctx context.Context, coords Coordinates) (geolocation.Position, error) {
	position := geolocation.Position{
		Latitude:   coords.Latitude,
		Longitude:  coords.Longitude,
		Accuracy:   0,
		CapturedAt: time.Now().UTC(),
	}

	report := models.LocationReport{
		Latitude:  position.Latitude,
		Longitude: position.Longitude,
		Accuracy:  position.Accuracy,
		Timestamp: position.CapturedAt,
	}

	if err := a.backend.UpdateLocation(ctx, report); err != nil {
		a.logger.Error().Err(err).Msg("Location submission failed")
		return geolocation.Position{}, flatten(err, submitFallbackMessage)
	}

	a.logger.Debug().
		Float64("latitude", position.Latitude).
		Float64("longitude", position.Longitude).
		Msg("Location submitted")
	return position, nil
}

// QueryNearbyUsers forwards the query verbatim to the backend and
// returns its result list unchanged.
func (a *Actions) QueryNearbyUsers(ctx context.Context, query models.NearbyQuery) ([]models.NearbyUser, error) {
	users, err := a.backend.NearbyUsers(ctx, query)
	if err != nil {
		a.logger.Error().Err(err).Msg("Nearby users query failed")
		return nil, flatten(err, nearbyFallbackMessage)
	}

	a.logger.Debug().Int("count", len(users)).Msg("Nearby users fetched")
	return users, nil
}

// flatten reduces a backend failure to a fresh error holding only its
// message, falling back to a generic one when the message is empty.
func flatten(err error, fallback string) error {
	message := err.Error()
	if message == "" {
		message = fallback
	}
	return errors.New(message)
}
