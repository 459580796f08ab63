package resource

// Lifespan is a scope whose end invalidates bindings made in it.
type Lifespan interface {
	// OnRelease registers fn to run once when the scope ends.
	OnRelease(fn func())

	// LifespanName identifies the scope in diagnostics.
	LifespanName() string
}

// EventType distinguishes binding lifecycle notifications.
type EventType uint8

const (
	EventBound EventType = iota
	EventUnbound
	EventInvalidated
	EventCollected
)

func (t EventType) String() string {
	switch t {
	case EventBound:
		return "bound"
	case EventUnbound:
		return "unbound"
	case EventInvalidated:
		return "invalidated"
	case EventCollected:
		return "collected"
	}
	return "unknown"
}

// Event represents a binding lifecycle event.
type Event struct {
	Key  any
	What string
	Span string
	Type EventType
}

// Observer receives notifications about binding lifecycle events.
type Observer interface {
	OnBindingEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnBindingEvent(e Event) { f(e) }
