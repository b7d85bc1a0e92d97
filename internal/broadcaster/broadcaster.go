package broadcaster

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/telemetry"
	"github.com/nearwave/location-agent/pkg/alerts"
	"github.com/nearwave/location-agent/pkg/geolocation"
	"github.com/nearwave/location-agent/pkg/lifecycle"
	"github.com/nearwave/location-agent/pkg/permissions"
)

// Handler receives position updates.
type Handler func(geolocation.Position)

// subscription pairs a handler with its removal id. The subscriber list
// keeps registration order; deliveries walk it front to back.
type subscription struct {
	id      string
	handler Handler
}

// Broadcaster owns permission acquisition, a single active position
// watch, the subscriber list, and the last known position. It fans every
// watch delivery out to subscribers and restarts tracking on foreground
// transitions.
//
// All state is guarded by one mutex, which is never held while invoking
// subscriber handlers, permission prompts, or the provider, so handlers
// may freely call back into the broadcaster.
type Broadcaster struct {
	// Dependencies
	cfg         Config
	provider    geolocation.Provider
	permissions permissions.Manager
	lifecycle   lifecycle.Monitor
	notifier    alerts.Notifier
	logger      zerolog.Logger

	// Guarded state
	mu          sync.Mutex
	initialized bool
	watch       geolocation.Watch
	subs        []subscription
	lastKnown   *geolocation.Position
	lifecycleID string
}

// New creates a broadcaster. Call Initialize to acquire permission and
// begin tracking.
func New(provider geolocation.Provider, perms permissions.Manager, monitor lifecycle.Monitor,
	notifier alerts.Notifier, logger zerolog.Logger, cfg Config) *Broadcaster {
	return &Broadcaster{
		cfg:         cfg,
		provider:    provider,
		permissions: perms,
		lifecycle:   monitor,
		notifier:    notifier,
		logger:      logger,
	}
}

// Initialize acquires the location permission, starts tracking, and
// installs the lifecycle listener. Idempotent: an initialized broadcaster
// returns immediately. Fails closed: on any error no watch is left
// running and the broadcaster stays uninitialized.
func (b *Broadcaster) Initialize(ctx context.Context) error {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		b.logger.Info().Msg("Broadcaster is already initialized")
		return nil
	}
	b.mu.Unlock()

	if !b.RequestPermission(ctx) {
		return geolocation.NewError(geolocation.CodePermissionDenied, "")
	}

	if err := b.StartTracking(ctx); err != nil {
		b.StopTracking()
		return err
	}

	id := b.lifecycle.Subscribe(b.onLifecycle)

	b.mu.Lock()
	b.lifecycleID = id
	b.initialized = true
	b.mu.Unlock()

	b.logger.Info().Msg("Broadcaster initialized")
	return nil
}

// RequestPermission resolves the location permission to a plain yes or
// no. An existing grant is honored without prompting; otherwise the
// operator is prompted with the configured rationale. Errors from the
// permission layer are logged and treated as denial, never returned.
func (b *Broadcaster) RequestPermission(ctx context.Context) bool {
	granted, err := b.permissions.Check(b.cfg.PermissionKey)
	if err != nil {
		b.logger.Error().Err(err).Msg("Permission check failed")
	}
	if granted {
		return true
	}

	result, err := b.permissions.Request(ctx, b.cfg.PermissionKey, b.cfg.Rationale)
	if err != nil {
		b.logger.Error().Err(err).Msg("Permission request failed")
		return false
	}
	return result == permissions.ResultGranted
}

// CurrentPosition resolves a single high-accuracy fix, updating the last
// known position on success. Failures carry a classified
// *geolocation.Error.
func (b *Broadcaster) CurrentPosition(ctx context.Context) (geolocation.Position, error) {
	fix, err := b.provider.CurrentPosition(ctx, b.cfg.Fix)
	if err != nil {
		le := geolocation.Normalize(err)
		b.logger.Error().Str("kind", string(le.Kind)).Str("message", le.Message).Msg("One-shot position request failed")
		return geolocation.Position{}, le
	}

	telemetry.PositionsReceived.WithLabelValues("single").Inc()

	b.mu.Lock()
	b.lastKnown = &fix
	b.mu.Unlock()

	return fix, nil
}

// StartTracking replaces any active watch with a fresh battery-efficient
// one and blocks until its first delivery: a position resolves it nil, an
// error resolves it with the mapped kind. Later deliveries only notify
// subscribers. Every watch error raises a user-facing alert, but only
// the first can reach this call's return value.
func (b *Broadcaster) StartTracking(ctx context.Context) error {
	b.StopTracking()

	first := make(chan *geolocation.Error, 1)
	var once sync.Once
	resolve := func(err *geolocation.Error) {
		once.Do(func() { first <- err })
	}

	onUpdate := func(fix geolocation.Position) {
		telemetry.PositionsReceived.WithLabelValues("watch").Inc()
		b.deliver(fix)
		resolve(nil)
	}
	onError := func(err error) {
		le := geolocation.Normalize(err)
		telemetry.WatchErrors.WithLabelValues(string(le.Kind)).Inc()
		b.logger.Error().Str("kind", string(le.Kind)).Str("message", le.Message).Msg("Position watch error")
		b.alert(le.Kind)
		resolve(le)
	}

	watch, err := b.provider.WatchPosition(onUpdate, onError, b.cfg.Watch)
	if err != nil {
		le := geolocation.Normalize(err)
		b.logger.Error().Str("kind", string(le.Kind)).Str("message", le.Message).Msg("Failed to register position watch")
		b.alert(le.Kind)
		return le
	}

	b.mu.Lock()
	b.watch = watch
	b.mu.Unlock()

	b.logger.Info().Msg("Position watch registered, waiting for first delivery")

	select {
	case err := <-first:
		if err != nil {
			return err
		}
		b.logger.Info().Msg("Tracking started")
		return nil
	case <-ctx.Done():
		b.StopTracking()
		return geolocation.Normalize(ctx.Err())
	}
}

// StopTracking cancels the active watch, if any. Always succeeds.
func (b *Broadcaster) StopTracking() {
	b.mu.Lock()
	watch := b.watch
	b.watch = nil
	b.mu.Unlock()

	if watch != nil {
		watch.Stop()
		b.logger.Info().Msg("Position watch stopped")
	}
}

// Tracking reports whether a watch is currently registered.
func (b *Broadcaster) Tracking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.watch != nil
}

// Subscribe registers a handler for future deliveries and returns its
// subscription id. If a last known position exists, the handler is
// invoked synchronously with it before Subscribe returns, so late
// subscribers still get an immediate snapshot.
func (b *Broadcaster) Subscribe(handler Handler) string {
	sub := subscription{id: uuid.NewString(), handler: handler}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	last := b.lastKnown
	b.mu.Unlock()

	if last != nil {
		b.invoke(sub, *last)
	}
	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// ClearSubscriptions removes all subscribers.
func (b *Broadcaster) ClearSubscriptions() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

// LastKnownPosition returns the most recent position, if any.
func (b *Broadcaster) LastKnownPosition() (geolocation.Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastKnown == nil {
		return geolocation.Position{}, false
	}
	return *b.lastKnown, true
}

// Shutdown fully reverses Initialize: the watch is stopped, subscribers
// and the last known position are cleared, and the lifecycle listener is
// removed. Safe to call repeatedly.
func (b *Broadcaster) Shutdown() {
	b.StopTracking()

	b.mu.Lock()
	b.subs = nil
	b.lastKnown = nil
	b.initialized = false
	id := b.lifecycleID
	b.lifecycleID = ""
	b.mu.Unlock()

	if id != "" {
		b.lifecycle.Unsubscribe(id)
	}
	b.logger.Info().Msg("Broadcaster shut down")
}

// deliver records the fix as last known and notifies subscribers in
// registration order. The subscriber list is snapshotted under the lock
// and handlers run outside it.
func (b *Broadcaster) deliver(fix geolocation.Position) {
	b.mu.Lock()
	b.lastKnown = &fix
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.invoke(sub, fix)
	}
}

// invoke runs one handler, isolating the rest of the fan-out from its
// panics.
func (b *Broadcaster) invoke(sub subscription, fix geolocation.Position) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.SubscriberPanics.Inc()
			b.logger.Error().Interface("panic", r).Str("subscription_id", sub.id).Msg("Subscriber handler panicked")
		}
	}()

	telemetry.SubscriberNotifications.Inc()
	sub.handler(fix)
}

// alert shows the user-facing failure message for an error kind.
func (b *Broadcaster) alert(kind geolocation.ErrorKind) {
	var message string
	switch kind {
	case geolocation.KindPermissionDenied:
		message = "Location permission was denied. Please enable location access in settings."
	case geolocation.KindUnavailable:
		message = "Unable to determine your position. Check that GPS is enabled and try again."
	case geolocation.KindTimeout:
		message = "Timed out while acquiring your position. Please try again."
	default:
		message = "An unexpected location error occurred. Please try again."
	}
	b.notifier.Alert("Location Error", message)
}

// onLifecycle reacts to application state transitions. Foreground
// restarts tracking when the broadcaster is initialized and idle;
// background stops it only when the pause policy is on.
func (b *Broadcaster) onLifecycle(state lifecycle.State) {
	switch state {
	case lifecycle.StateForeground:
		b.mu.Lock()
		restart := b.initialized && b.watch == nil
		b.mu.Unlock()
		if !restart {
			return
		}

		b.logger.Info().Msg("Foreground transition, restarting tracking")
		go func() {
			if err := b.StartTracking(context.Background()); err != nil {
				b.logger.Error().Err(err).Msg("Failed to restart tracking on foreground")
			}
		}()

	case lifecycle.StateBackground:
		if b.cfg.PauseInBackground {
			b.logger.Info().Msg("Background transition, pausing tracking")
			b.StopTracking()
		}
	}
}
