package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/nearwave/location-agent/internal/mocks"
	"github.com/nearwave/location-agent/internal/models"
)

// TestActions_SubmitLocation_Success tests the happy path: the submitted position
// carries the given coordinates, accuracy zero, and the call time, and is returned
// unchanged.
func TestActions_SubmitLocation_Success(t *testing.T) {
	// Setup
	mockBackend := new(mocks.MockBackendClient)
	actions := New(mockBackend, zerolog.Nop())

	var sent models.LocationReport
	mockBackend.On("UpdateLocation", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(models.LocationReport)
		}).
		Return(nil)

	// Execute
	before := time.Now().UTC()
	position, err := actions.SubmitLocation(context.Background(), Coordinates{Latitude: 10, Longitude: 20})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 10.0, position.Latitude)
	assert.Equal(t, 20.0, position.Longitude)
	assert.Zero(t, position.Accuracy)
	assert.WithinDuration(t, before, position.CapturedAt, 2*time.Second)
	assert.Equal(t, time.UTC, position.CapturedAt.Location())

	// The report mirrors the returned position.
	assert.Equal(t, position.Latitude, sent.Latitude)
	assert.Equal(t, position.Longitude, sent.Longitude)
	assert.Zero(t, sent.Accuracy)
	assert.Equal(t, position.CapturedAt, sent.Timestamp)
	mockBackend.AssertExpectations(t)
}

// TestActions_SubmitLocation_BackendFailure tests that a backend failure surfaces as
// a fresh flat error holding only the backend's message.
func TestActions_SubmitLocation_BackendFailure(t *testing.T) {
	// Setup
	mockBackend := new(mocks.MockBackendClient)
	actions := New(mockBackend, zerolog.Nop())

	backendErr := errors.New("device is rate limited")
	mockBackend.On("UpdateLocation", mock.Anything, mock.Anything).Return(backendErr)

	// Execute
	position, err := actions.SubmitLocation(context.Background(), Coordinates{Latitude: 10, Longitude: 20})

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "device is rate limited", err.Error())
	assert.False(t, errors.Is(err, backendErr), "backend error must not leak through")
	assert.Zero(t, position)
}

// TestActions_SubmitLocation_EmptyMessageFallback tests the generic fallback for
// failures with no message text.
func TestActions_SubmitLocation_EmptyMessageFallback(t *testing.T) {
	// Setup
	mockBackend := new(mocks.MockBackendClient)
	actions := New(mockBackend, zerolog.Nop())
	mockBackend.On("UpdateLocation", mock.Anything, mock.Anything).Return(errors.New(""))

	// Execute
	_, err := actions.SubmitLocation(context.Background(), Coordinates{Latitude: 10, Longitude: 20})

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "Failed to update location.", err.Error())
}

// TestActions_QueryNearbyUsers_Success tests that the query is forwarded verbatim and
// the result list comes back unchanged.
func TestActions_QueryNearbyUsers_Success(t *testing.T) {
	// Setup
	mockBackend := new(mocks.MockBackendClient)
	actions := New(mockBackend, zerolog.Nop())

	query := models.NearbyQuery{Latitude: 48.1351, Longitude: 11.5820, RadiusMeters: 500, Limit: 10}
	users := []models.NearbyUser{
		{ID: "user-1", DisplayName: "Ada", Latitude: 48.1353, Longitude: 11.5821, DistanceMeters: 25},
		{ID: "user-2", DisplayName: "Grace", Latitude: 48.1360, Longitude: 11.5830, DistanceMeters: 120},
	}
	mockBackend.On("NearbyUsers", mock.Anything, query).Return(users, nil)

	// Execute
	got, err := actions.QueryNearbyUsers(context.Background(), query)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, users, got)
	mockBackend.AssertExpectations(t)
}

// TestActions_QueryNearbyUsers_BackendFailure tests message flattening on query
// failure.
func TestActions_QueryNearbyUsers_BackendFailure(t *testing.T) {
	// Setup
	mockBackend := new(mocks.MockBackendClient)
	actions := New(mockBackend, zerolog.Nop())

	backendErr := errors.New("nearby users query rejected")
	mockBackend.On("NearbyUsers", mock.Anything, mock.Anything).Return(nil, backendErr)

	// Execute
	users, err := actions.QueryNearbyUsers(context.Background(), models.NearbyQuery{Latitude: 1, Longitude: 2})

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "nearby users query rejected", err.Error())
	assert.False(t, errors.Is(err, backendErr))
	assert.Nil(t, users)
}

// TestActions_QueryNearbyUsers_EmptyMessageFallback tests the generic fallback for
// query failures with no message text.
func TestActions_QueryNearbyUsers_EmptyMessageFallback(t *testing.T) {
	// Setup
	mockBackend := new(mocks.MockBackendClient)
	actions := New(mockBackend, zerolog.Nop())
	mockBackend.On("NearbyUsers", mock.Anything, mock.Anything).Return(nil, errors.New(""))

	// Execute
	_, err := actions.QueryNearbyUsers(context.Background(), models.NearbyQuery{Latitude: 1, Longitude: 2})

	// Assert
	assert.Error(t, err)
	assert.Equal(t, "Failed to fetch nearby users.", err.Error())
}
