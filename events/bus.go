package events

import (
	"sync"
)

// Topic names an in-process notification. The three topics mirror the
// signals the count aggregator re-derives on.
type Topic string

const (
	// TopicLocalCartChanged is published by callers after a successful guest
	// cart mutation in this process.
	TopicLocalCartChanged Topic = "cart.local.changed"
	// TopicSessionEstablished is published once a login (and its merge run)
	// has completed.
	TopicSessionEstablished Topic = "session.established"
	// TopicStorageChanged is published when the persisted cart was changed by
	// another process or instance.
	TopicStorageChanged Topic = "storage.changed"
)

const subscriberBuffer = 8

// Bus is a small publish/subscribe fan-out for in-process signals. Publish
// never blocks: a subscriber whose buffer is full misses the notification,
// which is acceptable because every consumer recomputes from current state
// on its next trigger.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Topic
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Topic)}
}

// Subscribe returns a channel receiving the given topics. The channel is
// never closed by the bus.
func (b *Bus) Subscribe(topics ...Topic) <-chan Topic {
	ch := make(chan Topic, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], ch)
	}
	return ch
}

// Publish delivers the topic to all subscribers without blocking.
func (b *Bus) Publish(topic Topic) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- topic:
		default:
		}
	}
}
