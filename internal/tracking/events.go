package tracking

// EventType identifies a category of store change event.
type EventType string

const (
	EventNewParcel    EventType = "new_parcel"
	EventParcelUpdate EventType = "parcel_update"
	EventDriverUpdate EventType = "driver_update"
)

// Event is a single store change notification.
//
// Seq is a monotonically increasing sequence number assigned in mutation
// order; consumers can rely on events arriving in Seq order.
// Payload is a defensive copy of the post-mutation entity.
type Event struct {
	Type    EventType `json:"type"`
	Seq     uint64    `json:"seq"`
	Payload any       `json:"data"`
}

// Subscriber receives store change events.
//
// Subscribers are invoked synchronously in mutation order while the store's
// emit lock is held; they must not block. Consumers that perform I/O are
// expected to hand off to their own buffered queue.
type Subscriber func(Event)
