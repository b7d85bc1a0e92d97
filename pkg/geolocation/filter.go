package geolocation

import (
	"math"
	"time"
)

// deliveryGate applies the watch distance filter and fastest-interval
// throttle. Not safe for concurrent use; each watch goroutine owns one.
type deliveryGate struct {
	minDistance float64
	minInterval time.Duration

	hasLast bool
	last    Position
}

func newDeliveryGate(opts WatchOptions) *deliveryGate {
	return &deliveryGate{
		minDistance: opts.DistanceFilter,
		minInterval: opts.FastestInterval,
	}
}

// Admit reports whether the fix should be delivered and, if so, records
// it as the new reference point. The first fix is always admitted.
func (g *deliveryGate) Admit(fix Position) bool {
	if g.hasLast {
		if g.minInterval > 0 && fix.CapturedAt.Sub(g.last.CapturedAt) < g.minInterval {
			return false
		}
		if g.minDistance > 0 && DistanceMeters(g.last, fix) < g.minDistance {
			return false
		}
	}
	g.hasLast = true
	g.last = fix
	return true
}

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two fixes.
func DistanceMeters(a, b Position) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
