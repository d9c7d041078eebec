package bus

import "time"

// AnyEvent subscribes a handler to every event type.
const AnyEvent = "*"

// EventBus is an in-process, synchronous pub/sub bus.
//
// - Type-based fan-out: handlers subscribe by Event.Type() or AnyEvent.
// - Ordered delivery: handlers run in subscription order on the publisher goroutine.
// - Error aggregation: handler errors are joined and returned from Publish.
// - Observability: metrics are collected only while observers are registered.
//
// All methods are safe for concurrent use. Handlers may publish and subscribe.
type EventBus interface {
	// Publish delivers the event to the subscribers of event.Type() and then to
	// the AnyEvent subscribers.
	Publish(event Event) error
	// PublishBatch publishes events in order and aggregates errors across them.
	PublishBatch(events ...Event) error

	// Subscribe registers a handler for an event type.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Safe to call with nil.
	Unsubscribe(Subscription) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics returns a snapshot of the counters.
	GetMetrics() EventBusMetrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is invoked per delivered event.
type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries and errors.
type EventBusObserver interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, durationMicros int64)
}

// EventBusMetrics is updated only while at least one observer is registered.
type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
