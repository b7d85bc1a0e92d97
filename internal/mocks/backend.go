package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nearwave/location-agent/internal/models"
)

// MockBackendClient is a mock implementation of the backend Client interface
type MockBackendClient struct {
	mock.Mock
}

func (m *MockBackendClient) UpdateLocation(ctx context.Context, report models.LocationReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockBackendClient) NearbyUsers(ctx context.Context, query models.NearbyQuery) ([]models.NearbyUser, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NearbyUser), args.Error(1)
}
