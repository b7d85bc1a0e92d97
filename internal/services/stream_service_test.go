package services

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/nearwave/location-agent/internal/stream"
	"github.com/nearwave/location-agent/internal/telemetry"
)

// TestStreamService_ServesEndpoints tests the three endpoints end to end: health
// probe, Prometheus metrics, and the websocket stream.
func TestStreamService_ServesEndpoints(t *testing.T) {
	// Setup
	telemetry.InitMetrics()
	hub := stream.NewHub(nil, zerolog.Nop())
	service := NewStreamService("127.0.0.1:0", hub, zerolog.Nop())

	// Execute
	assert.NoError(t, service.Start())
	addr := service.Addr()
	assert.NotEmpty(t, addr)

	// Assert: health probe.
	resp, err := http.Get("http://" + addr + "/healthz")
	if assert.NoError(t, err) {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, string(body))
	}

	// Metrics endpoint exposes the agent's own counters.
	telemetry.SubscriberNotifications.Inc()
	resp, err = http.Get("http://" + addr + "/metrics")
	if assert.NoError(t, err) {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "location_agent_subscriber_notifications_total")
	}

	// Websocket stream delivers broadcast frames.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	assert.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(stream.Frame{Type: "position", Payload: map[string]float64{"latitude": 1}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	assert.NoError(t, err)

	var frame struct {
		Type string `json:"type"`
	}
	assert.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "position", frame.Type)

	// Execute: shutdown.
	assert.NoError(t, service.Stop())

	// Assert: clients are gone and the port is released.
	assert.Zero(t, hub.ClientCount())
	_, err = http.Get("http://" + addr + "/healthz")
	assert.Error(t, err)
}

// TestStreamService_RestartsCleanly tests stop-then-start on a fresh port.
func TestStreamService_RestartsCleanly(t *testing.T) {
	// Setup
	hub := stream.NewHub(nil, zerolog.Nop())
	service := NewStreamService("127.0.0.1:0", hub, zerolog.Nop())

	// Execute + Assert
	assert.NoError(t, service.Start())
	assert.NoError(t, service.Stop())

	assert.NoError(t, service.Start())
	resp, err := http.Get("http://" + service.Addr() + "/healthz")
	if assert.NoError(t, err) {
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.NoError(t, service.Stop())
}

// TestStreamService_LifecycleGuards tests the double start/stop guard errors.
func TestStreamService_LifecycleGuards(t *testing.T) {
	// Setup
	hub := stream.NewHub(nil, zerolog.Nop())
	service := NewStreamService("127.0.0.1:0", hub, zerolog.Nop())

	// Execute + Assert
	assert.NoError(t, service.Start())
	assert.EqualError(t, service.Start(), "stream service is already running")
	assert.NoError(t, service.Stop())
	assert.EqualError(t, service.Stop(), "stream service is not running")
}
