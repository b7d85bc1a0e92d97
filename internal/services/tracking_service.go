package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/actions"
	"github.com/nearwave/location-agent/internal/broadcaster"
	"github.com/nearwave/location-agent/internal/models"
	"github.com/nearwave/location-agent/internal/stream"
	"github.com/nearwave/location-agent/pkg/geolocation"
)

// updateBufferSize bounds positions queued between the broadcaster's
// delivery goroutine and the reporting loop. When full, new fixes are
// dropped; the next delivery carries fresher data anyway.
const updateBufferSize = 16

// TrackingService drives the location broadcaster for the agent: it
// initializes it on start, forwards every delivered position to the
// local stream, reports positions to the backend at the configured
// cadence, and periodically refreshes the nearby-users view.
type TrackingService struct {
	broadcaster *broadcaster.Broadcaster
	actions     *actions.Actions
	hub         *stream.Hub
	logger      zerolog.Logger

	initTimeout    time.Duration
	reportInterval time.Duration
	nearbyEvery    int
	nearbyRadius   float64
	nearbyLimit    int

	subscriptionID string
	updates        chan geolocation.Position
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// NewTrackingService initializes a new TrackingService. hub may be nil
// when the stream endpoint is disabled. nearbyEvery refreshes the
// nearby-users view after every n-th backend report; zero disables it.
func NewTrackingService(locationBroadcaster *broadcaster.Broadcaster, locationActions *actions.Actions,
	hub *stream.Hub, initTimeout, reportInterval time.Duration, nearbyEvery int,
	nearbyRadius float64, nearbyLimit int, logger zerolog.Logger) *TrackingService {

	return &TrackingService{
		broadcaster:    locationBroadcaster,
		actions:        locationActions,
		hub:            hub,
		initTimeout:    initTimeout,
		reportInterval: reportInterval,
		nearbyEvery:    nearbyEvery,
		nearbyRadius:   nearbyRadius,
		nearbyLimit:    nearbyLimit,
		logger:         logger,
	}
}

// Start initializes the broadcaster (permission acquisition plus the
// first fix, bounded by the init timeout) and launches the reporting
// loop. A failed initialization fails the start.
func (t *TrackingService) Start() error {
	if t.ctx != nil {
		t.logger.Warn().Msg("TrackingService is already running")
		return errors.New("tracking service is already running")
	}

	initCtx, cancel := context.WithTimeout(context.Background(), t.initTimeout)
	defer cancel()

	if err := t.broadcaster.Initialize(initCtx); err != nil {
		t.logger.Error().Err(err).Msg("Failed to initialize location broadcaster")
		return err
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.updates = make(chan geolocation.Position, updateBufferSize)
	t.subscriptionID = t.broadcaster.Subscribe(t.enqueue)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.runReportingLoop()
	}()

	t.logger.Info().Msg("TrackingService started successfully")
	return nil
}

// Stop tears the service down: the reporting loop exits, the
// subscription is removed, and the broadcaster is fully shut down.
func (t *TrackingService) Stop() error {
	if t.ctx == nil {
		t.logger.Warn().Msg("TrackingService is not running")
		return errors.New("tracking service is not running")
	}

	t.broadcaster.Unsubscribe(t.subscriptionID)
	t.cancel()
	t.wg.Wait()
	t.broadcaster.Shutdown()

	t.ctx = nil
	t.cancel = nil

	t.logger.Info().Msg("TrackingService stopped successfully")
	return nil
}

// enqueue hands a delivered position to the reporting loop without
// blocking the broadcaster's fan-out.
func (t *TrackingService) enqueue(fix geolocation.Position) {
	select {
	case t.updates <- fix:
	default:
		t.logger.Debug().Msg("Update buffer full, dropping position")
	}
}

// runReportingLoop consumes delivered positions, pushes each to the
// stream, and reports to the backend no more often than the report
// interval.
func (t *TrackingService) runReportingLoop() {
	reports := 0
	var lastReport time.Time

	for {
		select {
		case <-t.ctx.Done():
			t.logger.Info().Msg("TrackingService stopping gracefully")
			return

		case fix := <-t.updates:
			if t.hub != nil {
				t.hub.Broadcast(stream.Frame{Type: "position", Payload: fix})
			}

			if !lastReport.IsZero() && time.Since(lastReport) < t.reportInterval {
				continue
			}

			position, err := t.actions.SubmitLocation(t.ctx, actions.Coordinates{
				Latitude:  fix.Latitude,
				Longitude: fix.Longitude,
			})
			if err != nil {
				t.logger.Error().Str("reason", err.Error()).Msg("Failed to report position")
				continue
			}

			lastReport = time.Now()
			reports++

			if t.nearbyEvery > 0 && reports%t.nearbyEvery == 0 {
				t.refreshNearbyUsers(position)
			}
		}
	}
}

// refreshNearbyUsers queries the backend for users around the reported
// position and pushes the list to stream clients.
func (t *TrackingService) refreshNearbyUsers(position geolocation.Position) {
	users, err := t.actions.QueryNearbyUsers(t.ctx, models.NearbyQuery{
		Latitude:     position.Latitude,
		Longitude:    position.Longitude,
		RadiusMeters: t.nearbyRadius,
		Limit:        t.nearbyLimit,
	})
	if err != nil {
		t.logger.Error().Str("reason", err.Error()).Msg("Failed to refresh nearby users")
		return
	}

	if t.hub != nil {
		t.hub.Broadcast(stream.Frame{Type: "nearby_users", Payload: users})
	}
	t.logger.Debug().Int("count", len(users)).Msg("Nearby users refreshed")
}
