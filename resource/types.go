package resource

import "fmt"

// Handle is an opaque reference to a value in a table. The low 24 bits
// hold the slot index plus one, the high 8 bits the slot generation.
// Handle 0 is reserved and always invalid. The generation wraps, so stale
// detection covers the last 255 reuses of a slot.
type Handle uint32

const (
	indexBits = 24
	indexMask = 1<<indexBits - 1
	// MaxSlots is the largest number of live values in one table.
	MaxSlots = indexMask
)

func makeHandle(index int, gen uint8) Handle {
	return Handle(uint32(gen)<<indexBits | uint32(index+1))
}

// Index returns the slot index, or -1 for the zero handle.
func (h Handle) Index() int {
	return int(uint32(h)&indexMask) - 1
}

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint8 {
	return uint8(uint32(h) >> indexBits)
}

func (h Handle) String() string {
	if h == 0 {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d@%d)", h.Index(), h.Generation())
}

// Kind tags the value a handle refers to.
type Kind uint32

const (
	KindAny Kind = iota
	KindContext
	KindLayer
	KindStack
	KindAttr
	KindVariant
	KindPayload
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindContext:
		return "context"
	case KindLayer:
		return "layer"
	case KindStack:
		return "stack"
	case KindAttr:
		return "attr"
	case KindVariant:
		return "variant"
	case KindPayload:
		return "payload"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage for a table.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(kind Kind, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a value and returns (value, true).
	// Returns (nil, false) if the handle is stale or has outstanding borrows.
	Drop(handle Handle) (any, bool)

	// Close releases all values held by the backend.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup.
type Dropper interface {
	Drop()
}
