package geolocation

import "context"

// Provider is the boundary to a positioning source. Implementations
// return *Error for classified failures so callers can branch on kind.
type Provider interface {
	// CurrentPosition resolves a single fix, honoring opts.Timeout and,
	// when opts.MaximumAge permits, a cached fix.
	CurrentPosition(ctx context.Context, opts FixOptions) (Position, error)

	// WatchPosition registers a continuous watch. onUpdate receives
	// fixes that pass the watch filters; onError receives classified
	// delivery failures. Both are invoked from the watch's own
	// goroutine, one call at a time, in delivery order. The returned
	// Watch must be stopped to release the source.
	WatchPosition(onUpdate func(Position), onError func(error), opts WatchOptions) (Watch, error)

	// Close releases any resources held by the provider itself.
	// Watches must be stopped separately.
	Close() error
}

// Watch is a handle to an active continuous watch.
type Watch interface {
	// Stop cancels the watch. No deliveries are initiated afterwards;
	// one already in flight may still complete. Safe to call twice.
	Stop()
}
