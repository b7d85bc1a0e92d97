package lifecycle

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bus is an in-process Monitor. Transitions are fanned out to handlers
// outside the bus lock, so handlers may subscribe and unsubscribe freely.
type Bus struct {
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	handlers map[string]Handler
}

// NewBus creates a bus starting in the given state.
func NewBus(initial State, logger zerolog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		state:    initial,
		handlers: make(map[string]Handler),
	}
}

// Subscribe implements Monitor.
func (b *Bus) Subscribe(handler Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	b.handlers[id] = handler
	b.mu.Unlock()

	return id
}

// Unsubscribe implements Monitor.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

// Current implements Monitor.
func (b *Bus) Current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Publish records a transition and notifies subscribers. Publishing the
// current state again is a no-op.
func (b *Bus) Publish(state State) {
	b.mu.Lock()
	if state == b.state {
		b.mu.Unlock()
		return
	}
	b.state = state

	snapshot := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.Unlock()

	b.logger.Info().Str("state", string(state)).Msg("Lifecycle state changed")
	for _, h := range snapshot {
		h(state)
	}
}
