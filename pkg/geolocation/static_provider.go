package geolocation

import (
	"context"
	"time"
)

// StaticProvider always reports the same coordinates. Intended for
// development rigs and tests where no positioning hardware exists.
type StaticProvider struct {
	latitude  float64
	longitude float64
	accuracy  float64
}

// NewStaticProvider creates a provider pinned to the given coordinates.
func NewStaticProvider(latitude, longitude, accuracy float64) *StaticProvider {
	return &StaticProvider{
		latitude:  latitude,
		longitude: longitude,
		accuracy:  accuracy,
	}
}

// CurrentPosition returns the fixed coordinates stamped with the call time.
func (s *StaticProvider) CurrentPosition(ctx context.Context, opts FixOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, Normalize(err)
	}
	return s.fix(), nil
}

// WatchPosition delivers the fixed coordinates immediately and then on
// every interval tick. The point never moves, so the distance filter is
// ignored; only the fastest-interval throttle applies.
func (s *StaticProvider) WatchPosition(onUpdate func(Position), onError func(error), opts WatchOptions) (Watch, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	gate := newDeliveryGate(WatchOptions{FastestInterval: opts.FastestInterval})

	w := &pollWatch{done: make(chan struct{})}
	go func() {
		emit := func() {
			fix := s.fix()
			if gate.Admit(fix) {
				onUpdate(fix)
			}
		}
		emit()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.done:
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return w, nil
}

// Close implements Provider.
func (s *StaticProvider) Close() error {
	return nil
}

func (s *StaticProvider) fix() Position {
	return Position{
		Latitude:   s.latitude,
		Longitude:  s.longitude,
		Accuracy:   s.accuracy,
		CapturedAt: time.Now().UTC(),
	}
}
