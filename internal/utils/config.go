package utils

import (
	"errors"

	"github.com/nearwave/location-agent/internal/status"
	"github.com/nearwave/location-agent/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID, a unique suffix is appended at startup
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file"` // Path to the device identity file
	} `yaml:"identity"`

	Backend struct {
		TopicPrefix            string `yaml:"topic_prefix"`             // Topic prefix for backend requests and responses
		QOS                    int    `yaml:"qos"`                      // MQTT QoS level for backend requests
		ResponseTimeoutSeconds int    `yaml:"response_timeout_seconds"` // Per-request wait when the caller sets no deadline
	} `yaml:"backend"`

	Geolocation struct {
		Provider string `yaml:"provider"` // Positioning source: serial, google or static

		Serial struct {
			Port     string `yaml:"port"`      // Serial device the GPS receiver is mounted on
			BaudRate int    `yaml:"baud_rate"` // Baud rate of the GPS receiver
		} `yaml:"serial"`

		Google struct {
			APIKey     string `yaml:"api_key"`     // Google geolocation API key
			ModemIndex int    `yaml:"modem_index"` // mmcli modem index used for cell tower data
		} `yaml:"google"`

		Static struct {
			Latitude  float64 `yaml:"latitude"`  // Fixed latitude reported by the static provider
			Longitude float64 `yaml:"longitude"` // Fixed longitude reported by the static provider
			Accuracy  float64 `yaml:"accuracy"`  // Fixed accuracy in meters
		} `yaml:"static"`
	} `yaml:"geolocation"`

	Permissions struct {
		Mode          string   `yaml:"mode"`           // Permission manager: static or grant_file
		Grants        []string `yaml:"grants"`         // static mode: permission keys granted up front
		GrantFile     string   `yaml:"grant_file"`     // grant_file mode: path of the persisted grant store
		PromptCommand string   `yaml:"prompt_command"` // grant_file mode: helper binary that prompts the operator
	} `yaml:"permissions"`

	Broadcaster struct {
		PauseInBackground bool `yaml:"pause_in_background"` // Stop the watch on background transitions

		Watch struct {
			HighAccuracy           bool    `yaml:"high_accuracy"`            // Ask the source for its best fixes
			DistanceFilterMeters   float64 `yaml:"distance_filter_meters"`   // Suppress deliveries closer than this
			IntervalSeconds        int     `yaml:"interval_seconds"`         // Polling cadence for polling sources
			FastestIntervalSeconds int     `yaml:"fastest_interval_seconds"` // Minimum gap between deliveries
		} `yaml:"watch"`
	} `yaml:"broadcaster"`

	Alerts struct {
		Command string `yaml:"command"` // Alert helper binary (e.g. notify-send), empty logs alerts
	} `yaml:"alerts"`

	Lifecycle struct {
		SignalDriven bool `yaml:"signal_driven"` // Drive foreground/background from SIGUSR2/SIGUSR1
	} `yaml:"lifecycle"`

	Services struct {
		Tracking struct {
			Enabled               bool    `yaml:"enabled"`                 // Enable/disable the tracking service
			InitTimeoutSeconds    int     `yaml:"init_timeout_seconds"`    // Bound on permission prompt plus first fix
			ReportIntervalSeconds int     `yaml:"report_interval_seconds"` // Minimum gap between backend reports
			NearbyEvery           int     `yaml:"nearby_every"`            // Refresh nearby users after every n-th report, 0 disables
			NearbyRadiusMeters    float64 `yaml:"nearby_radius_meters"`    // Radius of the nearby-users query
			NearbyLimit           int     `yaml:"nearby_limit"`            // Maximum nearby users requested
		} `yaml:"tracking"`

		Status struct {
			Enabled         bool          `yaml:"enabled"`          // Enable/disable the status service
			Topic           string        `yaml:"topic"`            // MQTT topic for status reports
			IntervalSeconds int           `yaml:"interval_seconds"` // Interval between status reports
			TimeoutSeconds  int           `yaml:"timeout_seconds"`  // Bound on one collection round
			QOS             int           `yaml:"qos"`              // MQTT QoS level for status reports
			Monitor         status.Config `yaml:"monitor"`          // Which collectors contribute
		} `yaml:"status"`

		Stream struct {
			Enabled        bool     `yaml:"enabled"`         // Enable/disable the local stream endpoint
			Addr           string   `yaml:"addr"`            // Listen address of the stream server
			AllowedOrigins []string `yaml:"allowed_origins"` // Browser origins allowed to connect
		} `yaml:"stream"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file,
// applies defaults for optional settings, and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if config.MQTT.Broker == "" {
		return nil, errors.New("mqtt.broker is required")
	}
	if config.MQTT.ClientID == "" {
		return nil, errors.New("mqtt.client_id is required")
	}

	return &config, nil
}

// applyDefaults fills zero-valued optional settings.
func applyDefaults(config *Config) {
	if config.Identity.DeviceFile == "" {
		config.Identity.DeviceFile = "device.json"
	}

	if config.Backend.TopicPrefix == "" {
		config.Backend.TopicPrefix = "location-agent"
	}
	if config.Backend.QOS == 0 {
		config.Backend.QOS = 1
	}
	if config.Backend.ResponseTimeoutSeconds == 0 {
		config.Backend.ResponseTimeoutSeconds = 10
	}

	if config.Geolocation.Provider == "" {
		config.Geolocation.Provider = "static"
	}
	if config.Geolocation.Serial.Port == "" {
		config.Geolocation.Serial.Port = "/dev/ttyUSB0"
	}
	if config.Geolocation.Serial.BaudRate == 0 {
		config.Geolocation.Serial.BaudRate = 9600
	}

	if config.Permissions.Mode == "" {
		config.Permissions.Mode = "static"
	}
	if config.Permissions.GrantFile == "" {
		config.Permissions.GrantFile = "grants.yaml"
	}

	if config.Services.Tracking.InitTimeoutSeconds == 0 {
		config.Services.Tracking.InitTimeoutSeconds = 60
	}
	if config.Services.Tracking.ReportIntervalSeconds == 0 {
		config.Services.Tracking.ReportIntervalSeconds = 30
	}
	if config.Services.Tracking.NearbyRadiusMeters == 0 {
		config.Services.Tracking.NearbyRadiusMeters = 500
	}
	if config.Services.Tracking.NearbyLimit == 0 {
		config.Services.Tracking.NearbyLimit = 20
	}

	if config.Services.Status.Topic == "" {
		config.Services.Status.Topic = "location-agent/status"
	}
	if config.Services.Status.IntervalSeconds == 0 {
		config.Services.Status.IntervalSeconds = 60
	}
	if config.Services.Status.TimeoutSeconds == 0 {
		config.Services.Status.TimeoutSeconds = 10
	}
	if config.Services.Status.QOS == 0 {
		config.Services.Status.QOS = 1
	}

	if config.Services.Stream.Addr == "" {
		config.Services.Stream.Addr = "127.0.0.1:8085"
	}
}
