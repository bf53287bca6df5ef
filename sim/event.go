package sim

// VTimeInSec is a simulated (virtual) time, in seconds.
type VTimeInSec float64

// An Event is a state change scheduled to happen at a future virtual time.
type Event interface {
	// Time returns the virtual time at which the event fires.
	Time() VTimeInSec

	// Handler returns the handler that processes the event.
	Handler() Handler

	// IsSecondary tells if the event is handled after all the same-time
	// primary events are handled.
	IsSecondary() bool
}

// A Handler processes events. An event can only be scheduled by its own
// handler and can only mutate that handler's state.
type Handler interface {
	Handle(e Event) error
}

// EventBase provides the fields and getters shared by all events.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler

	return e
}

// Time returns the time the event is going to happen.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler that handles the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}
