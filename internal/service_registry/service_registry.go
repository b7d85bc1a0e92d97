package service_registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/actions"
	"github.com/nearwave/location-agent/internal/broadcaster"
	"github.com/nearwave/location-agent/internal/services"
	"github.com/nearwave/location-agent/internal/status"
	"github.com/nearwave/location-agent/internal/stream"
	"github.com/nearwave/location-agent/internal/utils"
	"github.com/nearwave/location-agent/pkg/identity"
	"github.com/nearwave/location-agent/pkg/mqtt"
)

// ServiceRegistry manages the lifecycle of the agent's services.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration

	mqttClient          mqtt.MQTTClient
	deviceInfo          identity.DeviceInfoInterface
	locationBroadcaster *broadcaster.Broadcaster
	locationActions     *actions.Actions
	hub                 *stream.Hub
	logger              zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with shared
// dependencies. hub may be nil when the stream endpoint is disabled.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, deviceInfo identity.DeviceInfoInterface,
	locationBroadcaster *broadcaster.Broadcaster, locationActions *actions.Actions,
	hub *stream.Hub, logger zerolog.Logger) *ServiceRegistry {

	return &ServiceRegistry{
		services:            make(map[string]Service),
		mqttClient:          mqttClient,
		deviceInfo:          deviceInfo,
		locationBroadcaster: locationBroadcaster,
		locationActions:     locationActions,
		hub:                 hub,
		logger:              logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			// Stop already started services before returning
			sr.logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	// Ordered service definitions with inline constructors
	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "tracking",
			enabled: config.Services.Tracking.Enabled,
			constructor: func() (Service, error) {
				return services.NewTrackingService(
					sr.locationBroadcaster,
					sr.locationActions,
					sr.hub,
					time.Duration(config.Services.Tracking.InitTimeoutSeconds)*time.Second,
					time.Duration(config.Services.Tracking.ReportIntervalSeconds)*time.Second,
					config.Services.Tracking.NearbyEvery,
					config.Services.Tracking.NearbyRadiusMeters,
					config.Services.Tracking.NearbyLimit,
					sr.logger,
				), nil
			},
		},
		{
			name:    "status",
			enabled: config.Services.Status.Enabled,
			constructor: func() (Service, error) {
				return services.NewStatusService(
					config.Services.Status.Topic,
					time.Duration(config.Services.Status.IntervalSeconds)*time.Second,
					time.Duration(config.Services.Status.TimeoutSeconds)*time.Second,
					config.Services.Status.QOS,
					sr.deviceInfo,
					sr.mqttClient,
					sr.locationBroadcaster,
					status.DefaultRegistry(sr.logger),
					config.Services.Status.Monitor,
					sr.logger,
				), nil
			},
		},
		{
			name:    "stream",
			enabled: config.Services.Stream.Enabled && sr.hub != nil,
			constructor: func() (Service, error) {
				return services.NewStreamService(
					config.Services.Stream.Addr,
					sr.hub,
					sr.logger,
				), nil
			},
		},
	}

	// Register services in the predefined order
	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
