package geolocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider resolves positions through the Google Maps
// Geolocation API using nearby WiFi access points and cell towers, with
// IP-based lookup as the floor. Watches are implemented by polling at
// the configured interval.
type GoogleGeolocationProvider struct {
	client     *maps.Client
	modemIndex int
	logger     zerolog.Logger

	mu      sync.Mutex
	lastFix *Position
}

// NewGoogleGeolocationProvider creates a provider backed by the Maps
// API key. modemIndex selects the mmcli modem used for cell tower data.
func NewGoogleGeolocationProvider(apiKey string, modemIndex int, logger zerolog.Logger) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleGeolocationProvider{
		client:     c,
		modemIndex: modemIndex,
		logger:     logger,
	}, nil
}

// CurrentPosition performs one geolocation request, honoring the cached
// fix window and the request timeout.
func (g *GoogleGeolocationProvider) CurrentPosition(ctx context.Context, opts FixOptions) (Position, error) {
	if fix, ok := g.cachedFix(opts.MaximumAge); ok {
		return fix, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFixTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fix, err := g.geolocate(ctx)
	if err != nil {
		return Position{}, err
	}
	g.storeFix(fix)
	return fix, nil
}

// WatchPosition polls the API at opts.Interval, pushing fixes through
// the shared distance and fastest-interval gates. Poll failures invoke
// onError for each occurrence; polling continues afterwards.
func (g *GoogleGeolocationProvider) WatchPosition(onUpdate func(Position), onError func(error), opts WatchOptions) (Watch, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	w := &pollWatch{done: make(chan struct{})}
	gate := newDeliveryGate(opts)

	poll := func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		fix, err := g.geolocate(ctx)
		if err != nil {
			onError(err)
			return
		}
		if !gate.Admit(fix) {
			return
		}
		g.storeFix(fix)
		onUpdate(fix)
	}

	go func() {
		poll()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.done:
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	return w, nil
}

// Close implements Provider.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}

// geolocate gathers radio environment data and queries the API. Missing
// scan tooling degrades the request to IP-based lookup instead of
// failing it.
func (g *GoogleGeolocationProvider) geolocate(ctx context.Context) (Position, error) {
	wifiAPs, err := wifiAccessPoints(ctx)
	if err != nil {
		g.logger.Debug().Err(err).Msg("WiFi scan unavailable, continuing without access points")
	}

	cellTowers, err := cellTowers(ctx, g.modemIndex)
	if err != nil {
		g.logger.Debug().Err(err).Msg("Cell scan unavailable, continuing without towers")
	}

	req := &maps.GeolocationRequest{
		ConsiderIP:       true,
		WiFiAccessPoints: wifiAPs,
		CellTowers:       cellTowers,
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Position{}, NewError(CodeTimeout, "geolocation request timed out")
		}
		return Position{}, NewError(CodePositionUnavailable, err.Error())
	}

	return Position{
		Latitude:   resp.Location.Lat,
		Longitude:  resp.Location.Lng,
		Accuracy:   resp.Accuracy,
		CapturedAt: time.Now().UTC(),
	}, nil
}

func (g *GoogleGeolocationProvider) storeFix(fix Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFix = &fix
}

func (g *GoogleGeolocationProvider) cachedFix(maxAge time.Duration) (Position, bool) {
	if maxAge <= 0 {
		return Position{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastFix == nil || time.Since(g.lastFix.CapturedAt) > maxAge {
		return Position{}, false
	}
	return *g.lastFix, true
}

// pollWatch is the handle for interval-polling watches.
type pollWatch struct {
	done chan struct{}
	once sync.Once
}

func (w *pollWatch) Stop() {
	w.once.Do(func() { close(w.done) })
}
