package geolocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixAt(lat, lon float64, at time.Time) Position {
	return Position{Latitude: lat, Longitude: lon, Accuracy: 5, CapturedAt: at}
}

// TestDeliveryGate_FirstFixAlwaysAdmitted tests that the gate never suppresses the
// initial fix, whatever the filter settings.
func TestDeliveryGate_FirstFixAlwaysAdmitted(t *testing.T) {
	gate := newDeliveryGate(WatchOptions{DistanceFilter: 1000, FastestInterval: time.Hour})

	assert.True(t, gate.Admit(fixAt(48.1173, 11.5167, time.Now())))
}

// TestDeliveryGate_DistanceFilter tests suppression of fixes closer than the filter
// distance and admission once the device has moved far enough.
func TestDeliveryGate_DistanceFilter(t *testing.T) {
	gate := newDeliveryGate(WatchOptions{DistanceFilter: 50})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit(fixAt(48.0, 11.0, base)))

	// Roughly 11m north of the previous fix, inside the 50m filter.
	assert.False(t, gate.Admit(fixAt(48.0001, 11.0, base.Add(time.Minute))))

	// Roughly 111m north, beyond the filter.
	assert.True(t, gate.Admit(fixAt(48.001, 11.0, base.Add(2*time.Minute))))
}

// TestDeliveryGate_FastestInterval tests that deliveries are throttled by capture
// time, not wall clock.
func TestDeliveryGate_FastestInterval(t *testing.T) {
	gate := newDeliveryGate(WatchOptions{FastestInterval: 10 * time.Second})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit(fixAt(48.0, 11.0, base)))
	assert.False(t, gate.Admit(fixAt(48.5, 11.5, base.Add(3*time.Second))))
	assert.True(t, gate.Admit(fixAt(48.5, 11.5, base.Add(12*time.Second))))
}

// TestDeliveryGate_SuppressedFixNotReference tests that a suppressed fix does not
// become the reference point for later distance checks.
func TestDeliveryGate_SuppressedFixNotReference(t *testing.T) {
	gate := newDeliveryGate(WatchOptions{DistanceFilter: 100})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit(fixAt(48.0, 11.0, base)))

	// Two ~55m steps. Each is inside the filter relative to the last
	// delivered fix until the cumulative drift crosses 100m.
	assert.False(t, gate.Admit(fixAt(48.0005, 11.0, base.Add(time.Minute))))
	assert.True(t, gate.Admit(fixAt(48.001, 11.0, base.Add(2*time.Minute))))
}

// TestDeliveryGate_ZeroOptionsAdmitEverything tests the unfiltered configuration.
func TestDeliveryGate_ZeroOptionsAdmitEverything(t *testing.T) {
	gate := newDeliveryGate(WatchOptions{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit(fixAt(48.0, 11.0, base)))
	assert.True(t, gate.Admit(fixAt(48.0, 11.0, base)))
	assert.True(t, gate.Admit(fixAt(48.0, 11.0, base.Add(time.Nanosecond))))
}

// TestDistanceMeters tests the great-circle distance against known city pairs.
func TestDistanceMeters(t *testing.T) {
	munich := Position{Latitude: 48.1351, Longitude: 11.5820}
	berlin := Position{Latitude: 52.5200, Longitude: 13.4050}

	// Munich to Berlin is about 504km great-circle.
	d := DistanceMeters(munich, berlin)
	assert.InDelta(t, 504000, d, 2000)

	// Symmetric and zero on identical points.
	assert.InDelta(t, d, DistanceMeters(berlin, munich), 0.001)
	assert.Zero(t, DistanceMeters(munich, munich))
}
