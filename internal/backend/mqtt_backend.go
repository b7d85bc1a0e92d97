package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/constants"
	"github.com/nearwave/location-agent/internal/models"
	"github.com/nearwave/location-agent/internal/telemetry"
	"github.com/nearwave/location-agent/pkg/identity"
	"github.com/nearwave/location-agent/pkg/mqtt"
)

// Operation names used in logs and metrics.
const (
	opUpdateLocation = "update_location"
	opNearbyUsers    = "nearby_users"
)

// DefaultResponseTimeout bounds a backend round trip when the caller's
// context carries no deadline.
const DefaultResponseTimeout = 10 * time.Second

// MQTTBackend talks to the location backend over MQTT. Requests are
// published to per-operation topics carrying a request ID; all responses
// for this device arrive on a single response topic and are matched back
// to their waiters through a concurrent pending table, so any number of
// requests may be in flight at once.
type MQTTBackend struct {
	// Configuration fields
	topicPrefix     string
	qos             int
	responseTimeout time.Duration

	// Dependencies
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger

	// In-flight requests keyed by request ID
	pending cmap.ConcurrentMap[string, chan models.BackendResponse]

	// Internal state management
	mu      sync.Mutex
	running bool
}

// NewMQTTBackend creates a backend client publishing under topicPrefix.
// Call Init before issuing requests.
func NewMQTTBackend(topicPrefix string, qos int, responseTimeout time.Duration,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *MQTTBackend {
	if responseTimeout <= 0 {
		responseTimeout = DefaultResponseTimeout
	}
	return &MQTTBackend{
		topicPrefix:     topicPrefix,
		qos:             qos,
		responseTimeout: responseTimeout,
		deviceInfo:      deviceInfo,
		mqttClient:      mqttClient,
		logger:          logger,
		pending:         cmap.New[chan models.BackendResponse](),
	}
}

// Init subscribes to the device's response topic.
func (b *MQTTBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		b.logger.Warn().Msg("Backend client is already initialized")
		return errors.New("backend client is already initialized")
	}

	topic := b.responseTopic()
	token := b.mqttClient.Subscribe(topic, byte(b.qos), b.handleResponse)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to response topic: %w", token.Error())
	}

	b.running = true
	b.logger.Info().Str("topic", topic).Msg("Backend client initialized")
	return nil
}

// Close unsubscribes from the response topic. In-flight requests time out.
func (b *MQTTBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		b.logger.Warn().Msg("Backend client is not initialized")
		return errors.New("backend client is not initialized")
	}

	topic := b.responseTopic()
	token := b.mqttClient.Unsubscribe(topic)
	if token.Wait() && token.Error() != nil {
		b.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to unsubscribe from response topic")
		return token.Error()
	}

	b.running = false
	b.logger.Info().Msg("Backend client closed")
	return nil
}

// UpdateLocation implements Client.
func (b *MQTTBackend) UpdateLocation(ctx context.Context, report models.LocationReport) error {
	report.RequestID = uuid.NewString()
	report.DeviceID = b.deviceInfo.GetDeviceID()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize location report: %w", err)
	}

	resp, err := b.request(ctx, opUpdateLocation, b.topicPrefix+"/locations", report.RequestID, payload)
	if err != nil {
		return err
	}
	if resp.Status != constants.ResponseStatusOK {
		return rejectionError(resp, "location update rejected")
	}
	return nil
}

// NearbyUsers implements Client.
func (b *MQTTBackend) NearbyUsers(ctx context.Context, query models.NearbyQuery) ([]models.NearbyUser, error) {
	query.RequestID = uuid.NewString()
	query.DeviceID = b.deviceInfo.GetDeviceID()

	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize nearby query: %w", err)
	}

	resp, err := b.request(ctx, opNearbyUsers, b.topicPrefix+"/nearby", query.RequestID, payload)
	if err != nil {
		return nil, err
	}
	if resp.Status != constants.ResponseStatusOK {
		return nil, rejectionError(resp, "nearby users query rejected")
	}
	return resp.Users, nil
}

// request publishes one request and waits for its correlated response.
func (b *MQTTBackend) request(ctx context.Context, op, topic, requestID string, payload []byte) (models.BackendResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.responseTimeout)
		defer cancel()
	}

	// Register the waiter before publishing so a fast response cannot
	// slip past it.
	ch := make(chan models.BackendResponse, 1)
	b.pending.Set(requestID, ch)
	defer b.pending.Remove(requestID)

	token := b.mqttClient.Publish(topic, byte(b.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		telemetry.BackendRequests.WithLabelValues(op, "publish_error").Inc()
		return models.BackendResponse{}, fmt.Errorf("failed to publish %s request: %w", op, token.Error())
	}

	select {
	case resp := <-ch:
		if resp.Status == constants.ResponseStatusOK {
			telemetry.BackendRequests.WithLabelValues(op, "ok").Inc()
		} else {
			telemetry.BackendRequests.WithLabelValues(op, "rejected").Inc()
		}
		return resp, nil
	case <-ctx.Done():
		telemetry.BackendRequests.WithLabelValues(op, "timeout").Inc()
		b.logger.Warn().Str("op", op).Str("request_id", requestID).Msg("Backend request timed out")
		return models.BackendResponse{}, fmt.Errorf("%s request: %w", op, ctx.Err())
	}
}

// handleResponse routes one response message to its waiting request.
func (b *MQTTBackend) handleResponse(_ MQTT.Client, msg MQTT.Message) {
	var resp models.BackendResponse
	if err := json.Unmarshal(msg.Payload(), &resp); err != nil {
		b.logger.Error().Err(err).Msg("Error parsing backend response")
		return
	}

	ch, ok := b.pending.Pop(resp.RequestID)
	if !ok {
		// Late response after the waiter gave up.
		b.logger.Debug().Str("request_id", resp.RequestID).Msg("Dropping response with no waiter")
		return
	}
	ch <- resp
}

func (b *MQTTBackend) responseTopic() string {
	return fmt.Sprintf("%s/response/%s", b.topicPrefix, b.deviceInfo.GetDeviceID())
}

// rejectionError surfaces the backend's message when it sent one.
func rejectionError(resp models.BackendResponse, fallback string) error {
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return errors.New(fallback)
}
