package lifecycle

// State is the agent's application-level visibility state. Foreground
// means an operator is actively using the device; background means the
// agent should assume nobody is watching.
type State string

const (
	StateForeground State = "foreground"
	StateBackground State = "background"
)

// Handler receives lifecycle transitions.
type Handler func(State)

// Monitor publishes lifecycle transitions to subscribers.
type Monitor interface {
	// Subscribe registers a handler for future transitions and returns
	// its subscription ID.
	Subscribe(handler Handler) string

	// Unsubscribe removes a subscription. Unknown IDs are ignored.
	Unsubscribe(id string)

	// Current returns the present state.
	Current() State
}
