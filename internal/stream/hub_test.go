package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestHub(t *testing.T, allowedOrigins []string) (*Hub, string) {
	hub := NewHub(allowedOrigins, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// TestHub_BroadcastReachesAllClients tests that a frame fans out to every connected
// client as JSON.
func TestHub_BroadcastReachesAllClients(t *testing.T) {
	// Setup
	hub, url := newTestHub(t, nil)
	first := dial(t, url, nil)
	second := dial(t, url, nil)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	// Execute
	hub.Broadcast(Frame{
		Type:    "position",
		Payload: map[string]float64{"latitude": 48.1351, "longitude": 11.5820},
	})

	// Assert
	for _, conn := range []*websocket.Conn{first, second} {
		_, data, err := conn.ReadMessage()
		assert.NoError(t, err)

		var frame struct {
			Type    string             `json:"type"`
			Payload map[string]float64 `json:"payload"`
		}
		assert.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "position", frame.Type)
		assert.Equal(t, 48.1351, frame.Payload["latitude"])
		assert.Equal(t, 11.5820, frame.Payload["longitude"])
	}
}

// TestHub_ClientDisconnectIsDetected tests that a closed client is removed from the
// hub.
func TestHub_ClientDisconnectIsDetected(t *testing.T) {
	// Setup
	hub, url := newTestHub(t, nil)
	conn := dial(t, url, nil)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// Execute
	conn.Close()

	// Assert
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

// TestHub_OriginPolicy tests that browser origins are checked against the allow list
// while non-browser clients pass.
func TestHub_OriginPolicy(t *testing.T) {
	// Setup
	hub, url := newTestHub(t, []string{"http://app.example"})

	// Execute + Assert: unknown origin is refused at the handshake.
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	// Allowed origin connects.
	allowed := dial(t, url, http.Header{"Origin": []string{"http://app.example"}})
	defer allowed.Close()

	// No Origin header connects.
	plain := dial(t, url, nil)
	defer plain.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)
}

// TestHub_CloseAll tests that shutdown disconnects every client.
func TestHub_CloseAll(t *testing.T) {
	// Setup
	hub, url := newTestHub(t, nil)
	conn := dial(t, url, nil)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// Execute
	hub.CloseAll()

	// Assert
	assert.Zero(t, hub.ClientCount())
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// TestHub_BroadcastWithNoClients tests that broadcasting into an empty hub is safe.
func TestHub_BroadcastWithNoClients(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		hub.Broadcast(Frame{Type: "position", Payload: nil})
	})
}
