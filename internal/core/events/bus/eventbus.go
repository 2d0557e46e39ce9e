package bus

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNilHandler   = errors.New("bus: nil handler")
	ErrEmptyType    = errors.New("bus: empty event type")
	ErrUntypedEvent = errors.New("bus: event without type")
)

// simpleEvent is the Event used by callers that have no event type of their own.
type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
}

func (e simpleEvent) Type() string         { return e.typeStr }
func (e simpleEvent) Source() string       { return e.source }
func (e simpleEvent) Timestamp() time.Time { return e.ts }
func (e simpleEvent) Data() any            { return e.data }

// NewEvent creates an Event stamped with the current time.
func NewEvent(typ, src string, data any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data}
}

type subscription struct {
	id        string
	topic     string
	eventType string
	handler   EventHandler
	filters   []EventFilter
	bus       *inMemoryBus

	mu     sync.Mutex
	active bool
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) Topic() string     { return s.topic }
func (s *subscription) EventType() string { return s.eventType }

func (s *subscription) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscription) Cancel() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	s.mu.Unlock()
	s.bus.remove(s)
	return nil
}

func (s *subscription) accepts(event Event) bool {
	if s.eventType != AnyType && s.eventType != event.Type() {
		return false
	}
	for _, f := range s.filters {
		if !f(event) {
			return false
		}
	}
	return true
}

// inMemoryBus keeps subscriptions per topic in registration order.
type inMemoryBus struct {
	mu        sync.RWMutex
	topics    map[string][]*subscription
	metrics   EventBusMetrics
	observers []EventBusObserver
}

func New() EventBus {
	return &inMemoryBus{topics: make(map[string][]*subscription)}
}

func (b *inMemoryBus) Publish(event Event) error {
	return b.PublishToTopic("", event)
}

func (b *inMemoryBus) PublishToTopic(topic string, event Event) error {
	if event == nil || event.Type() == "" {
		return ErrUntypedEvent
	}

	b.mu.RLock()
	subs := slices.Clone(b.topics[topic])
	observers := slices.Clone(b.observers)
	b.mu.RUnlock()

	for _, obs := range observers {
		obs.OnPublish(topic, event)
	}

	var (
		all       error
		delivered int
		filtered  int
	)
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		if !s.accepts(event) {
			if s.eventType == AnyType || s.eventType == event.Type() {
				filtered++
			}
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	if len(observers) > 0 {
		for _, obs := range observers {
			obs.OnDelivered(topic, event, delivered, all)
		}
		b.mu.Lock()
		b.metrics.Published++
		b.metrics.DeliveredHandlers += uint64(delivered)
		b.metrics.Filtered += uint64(filtered)
		if all != nil {
			b.metrics.Errors++
		}
		b.mu.Unlock()
	}
	return all
}

func (b *inMemoryBus) PublishBatch(topic string, events ...Event) error {
	var all error
	for _, e := range events {
		if err := b.PublishToTopic(topic, e); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler, filters ...EventFilter) (Subscription, error) {
	return b.SubscribeTopic("", eventType, handler, filters...)
}

func (b *inMemoryBus) SubscribeTopic(topic, eventType string, handler EventHandler, filters ...EventFilter) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if eventType == "" {
		return nil, ErrEmptyType
	}
	s := &subscription{
		id:        uuid.NewString(),
		topic:     topic,
		eventType: eventType,
		handler:   handler,
		filters:   filters,
		bus:       b,
		active:    true,
	}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], s)
	b.mu.Unlock()
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := slices.DeleteFunc(b.topics[s.topic], func(x *subscription) bool { return x == s })
	if len(subs) == 0 {
		delete(b.topics, s.topic)
		return
	}
	b.topics[s.topic] = subs
}

func (b *inMemoryBus) AddObserver(obs EventBusObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.observers, obs) {
		b.observers = append(b.observers, obs)
	}
}

func (b *inMemoryBus) RemoveObserver(obs EventBusObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = slices.DeleteFunc(b.observers, func(o EventBusObserver) bool { return o == obs })
}

func (b *inMemoryBus) GetMetrics() EventBusMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

// GetTopics lists topics with live subscriptions, sorted by name.
func (b *inMemoryBus) GetTopics() []TopicInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]TopicInfo, 0, len(b.topics))
	for name, subs := range b.topics {
		out = append(out, TopicInfo{Name: name, Subs: len(subs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
