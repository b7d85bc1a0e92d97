package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nearwave/location-agent/internal/actions"
	"github.com/nearwave/location-agent/internal/backend"
	"github.com/nearwave/location-agent/internal/broadcaster"
	"github.com/nearwave/location-agent/internal/service_registry"
	"github.com/nearwave/location-agent/internal/stream"
	"github.com/nearwave/location-agent/internal/telemetry"
	"github.com/nearwave/location-agent/internal/utils"
	"github.com/nearwave/location-agent/pkg/alerts"
	"github.com/nearwave/location-agent/pkg/file"
	"github.com/nearwave/location-agent/pkg/geolocation"
	"github.com/nearwave/location-agent/pkg/identity"
	"github.com/nearwave/location-agent/pkg/lifecycle"
	"github.com/nearwave/location-agent/pkg/mqtt"
	"github.com/nearwave/location-agent/pkg/permissions"
	"github.com/rs/zerolog"
)

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration file")
	flag.Parse()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Register Prometheus metrics before any component records them
	telemetry.InitMetrics()

	// Generate a unique MQTT Client ID by appending a UUID
	config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	logger.Info().Str("client_id", config.MQTT.ClientID).Msg("Using MQTT Client ID")

	// Initialize the shared MQTT connection
	mqttClient := mqtt.NewMqttService(fileClient, logger)
	err = mqttClient.Initialize(config.MQTT.Broker, config.MQTT.ClientID, config.MQTT.CACertificate)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	// Initialize DeviceInfo and make sure the device has an identity
	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	err = deviceInfo.LoadDeviceInfo()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device information")
	}
	deviceID, err := deviceInfo.EnsureDeviceID()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to establish device identity")
	}
	logger.Info().Str("device_id", deviceID).Msg("Device identity ready")

	// Lifecycle transitions come from process signals on headless
	// devices; otherwise the agent stays in the foreground state.
	var monitor lifecycle.Monitor
	var signalMonitor *lifecycle.SignalMonitor
	if config.Lifecycle.SignalDriven {
		signalMonitor = lifecycle.NewSignalMonitor(logger)
		if err := signalMonitor.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start lifecycle monitor")
		}
		monitor = signalMonitor
	} else {
		monitor = lifecycle.NewBus(lifecycle.StateForeground, logger)
	}

	var notifier alerts.Notifier
	if config.Alerts.Command != "" {
		notifier = alerts.CommandNotifier{Command: config.Alerts.Command, Logger: logger}
	} else {
		notifier = alerts.LogNotifier{Logger: logger}
	}

	perms, err := buildPermissionManager(config, fileClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build permission manager")
	}

	provider, err := buildLocationProvider(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build location provider")
	}

	locationBroadcaster := broadcaster.New(provider, perms, monitor, notifier, logger, broadcasterConfig(config))

	// Backend client for location submission and nearby-user queries
	backendClient := backend.NewMQTTBackend(
		config.Backend.TopicPrefix,
		config.Backend.QOS,
		time.Duration(config.Backend.ResponseTimeoutSeconds)*time.Second,
		deviceInfo,
		mqttClient,
		logger,
	)
	if err := backendClient.Init(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize backend client")
	}
	locationActions := actions.New(backendClient, logger)

	// The stream hub fans positions out to local websocket clients
	var hub *stream.Hub
	if config.Services.Stream.Enabled {
		hub = stream.NewHub(config.Services.Stream.AllowedOrigins, logger)
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, deviceInfo,
		locationBroadcaster, locationActions, hub, logger)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop services cleanly")
	}
	if signalMonitor != nil {
		if err := signalMonitor.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop lifecycle monitor")
		}
	}
	if err := backendClient.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close backend client")
	}
	if err := provider.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close location provider")
	}
	mqttClient.Disconnect(250)
}

// buildPermissionManager selects the permission backend from the
// configuration: a fixed grant set, or a persisted grant file with an
// operator prompt helper.
func buildPermissionManager(config *utils.Config, fileClient file.FileOperations,
	logger zerolog.Logger) (permissions.Manager, error) {

	switch config.Permissions.Mode {
	case "static":
		return permissions.NewStaticManager(utils.SliceToSet(config.Permissions.Grants)), nil
	case "grant_file":
		var prompter permissions.Prompter
		if config.Permissions.PromptCommand != "" {
			prompter = permissions.ExecPrompter{Command: config.Permissions.PromptCommand, Logger: logger}
		} else {
			prompter = permissions.StaticPrompter{Grant: true}
		}
		return permissions.NewGrantFileManager(config.Permissions.GrantFile, fileClient, prompter, logger), nil
	default:
		return nil, fmt.Errorf("unknown permissions mode: %s", config.Permissions.Mode)
	}
}

// buildLocationProvider selects the positioning source from the
// configuration.
func buildLocationProvider(config *utils.Config, logger zerolog.Logger) (geolocation.Provider, error) {
	switch config.Geolocation.Provider {
	case "serial":
		return geolocation.NewSerialNMEAProvider(
			config.Geolocation.Serial.Port, config.Geolocation.Serial.BaudRate, logger), nil
	case "google":
		return geolocation.NewGoogleGeolocationProvider(
			config.Geolocation.Google.APIKey, config.Geolocation.Google.ModemIndex, logger)
	case "static":
		return geolocation.NewStaticProvider(
			config.Geolocation.Static.Latitude,
			config.Geolocation.Static.Longitude,
			config.Geolocation.Static.Accuracy,
		), nil
	default:
		return nil, fmt.Errorf("unknown geolocation provider: %s", config.Geolocation.Provider)
	}
}

// broadcasterConfig maps the configuration file onto the tracking
// policy, keeping the defaults for anything left unset.
func broadcasterConfig(config *utils.Config) broadcaster.Config {
	cfg := broadcaster.DefaultConfig()
	cfg.PauseInBackground = config.Broadcaster.PauseInBackground

	watch := config.Broadcaster.Watch
	if watch.HighAccuracy {
		cfg.Watch.HighAccuracy = true
	}
	if watch.DistanceFilterMeters > 0 {
		cfg.Watch.DistanceFilter = watch.DistanceFilterMeters
	}
	if watch.IntervalSeconds > 0 {
		cfg.Watch.Interval = time.Duration(watch.IntervalSeconds) * time.Second
	}
	if watch.FastestIntervalSeconds > 0 {
		cfg.Watch.FastestInterval = time.Duration(watch.FastestIntervalSeconds) * time.Second
	}
	return cfg
}
