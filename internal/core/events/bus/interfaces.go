package bus

import "time"

// AnyType subscribes a handler to every event type of a topic.
const AnyType = "*"

// EventBus is an in-process pub/sub bus used to fan episode events out to
// loggers, the live feed and tests.
//
// Delivery is synchronous and ordered: handlers run in the publisher's
// goroutine in subscription order, so a deterministic publisher produces a
// deterministic event stream. Errors from several handlers are joined.
// Topics scope subscriptions; the default topic is "".
type EventBus interface {
	// Publish delivers the event to the default topic.
	Publish(event Event) error
	// PublishToTopic delivers the event to handlers of topic subscribed to
	// event.Type() or AnyType.
	PublishToTopic(topic string, event Event) error
	// PublishBatch publishes events in order and joins their errors.
	PublishBatch(topic string, events ...Event) error

	// Subscribe registers a handler on the default topic. Filters are applied
	// per subscription; an event any filter rejects is skipped silently.
	Subscribe(eventType string, handler EventHandler, filters ...EventFilter) (Subscription, error)
	SubscribeTopic(topic, eventType string, handler EventHandler, filters ...EventFilter) (Subscription, error)
	// Unsubscribe cancels the subscription. Nil is ignored.
	Unsubscribe(Subscription) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics returns counters accumulated while at least one observer was
	// registered.
	GetMetrics() EventBusMetrics
	GetTopics() []TopicInfo
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event Event) error
	// EventFilter decides whether a subscription receives an event.
	EventFilter func(event Event) bool
)

// Subscription is a registered handler bound to a topic and event type.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// EventBusObserver is notified about deliveries.
type EventBusObserver interface {
	OnPublish(topic string, event Event)
	OnDelivered(topic string, event Event, handlers int, err error)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	Filtered          uint64
}

type TopicInfo struct {
	Name string
	Subs int
}
