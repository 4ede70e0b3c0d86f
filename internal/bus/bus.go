package bus

import (
	"log/slog"
	"sync"

	"github.com/datasteward/hubconsole/internal/model"
)

// TopicAll receives every published event regardless of topic.
const TopicAll = "*"

// Handler consumes one dispatched event.
type Handler func(evt model.Event)

// Subscription is the disposer handed back by Subscribe. The owner must
// call Cancel when it no longer wants events; no subscription may outlive
// its owner.
type Subscription struct {
	bus   *Bus
	topic string
	id    int64
}

// Cancel removes the subscription. Idempotent.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.unsubscribe(s.topic, s.id)
	s.bus = nil
}

type entry struct {
	id int64
	fn Handler
}

// Bus is an in-process topic bus connecting the event dispatcher to its
// consumers. Handlers for a topic run synchronously in subscribe order.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int64
	topics map[string][]entry
	closed bool
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		topics: make(map[string][]entry),
	}
}

// Subscribe registers a handler for a topic and returns its disposer.
// Subscribing on a closed bus returns an inert subscription.
func (b *Bus) Subscribe(topic string, fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return &Subscription{}
	}

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], entry{id: id, fn: fn})

	return &Subscription{bus: b, topic: topic, id: id}
}

// Publish delivers an event to all subscribers of its topic, then to all
// TopicAll subscribers. The handler set is snapshotted before invocation,
// so a handler may cancel any subscription (including its own) mid-dispatch.
func (b *Bus) Publish(evt model.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.topics[evt.Topic])+len(b.topics[TopicAll]))
	for _, e := range b.topics[evt.Topic] {
		handlers = append(handlers, e.fn)
	}
	if evt.Topic != TopicAll {
		for _, e := range b.topics[TopicAll] {
			handlers = append(handlers, e.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
}

// Close drops all subscriptions. Further subscribes are inert and further
// publishes deliver to no one.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.topics = make(map[string][]entry)
}

func (b *Bus) unsubscribe(topic string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[topic]
	for i, e := range entries {
		if e.id == id {
			b.topics[topic] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}
