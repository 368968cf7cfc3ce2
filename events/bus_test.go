package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicLocalCartChanged)

	bus.Publish(TopicLocalCartChanged)

	select {
	case topic := <-ch:
		assert.Equal(t, TopicLocalCartChanged, topic)
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}

func TestBus_SubscriberOnlySeesItsTopics(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicSessionEstablished)

	bus.Publish(TopicLocalCartChanged)

	select {
	case topic := <-ch:
		t.Fatalf("unexpected notification %q", topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_MultipleTopicsOneChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicLocalCartChanged, TopicStorageChanged)

	bus.Publish(TopicLocalCartChanged)
	bus.Publish(TopicStorageChanged)

	seen := map[Topic]bool{}
	for i := 0; i < 2; i++ {
		select {
		case topic := <-ch:
			seen[topic] = true
		case <-time.After(time.Second):
			t.Fatal("expected two notifications")
		}
	}
	assert.True(t, seen[TopicLocalCartChanged])
	assert.True(t, seen[TopicStorageChanged])
}

func TestBus_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TopicLocalCartChanged) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish(TopicLocalCartChanged)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBus_FanOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(TopicStorageChanged)
	b := bus.Subscribe(TopicStorageChanged)

	bus.Publish(TopicStorageChanged)

	for _, ch := range []<-chan Topic{a, b} {
		select {
		case topic := <-ch:
			require.Equal(t, TopicStorageChanged, topic)
		case <-time.After(time.Second):
			t.Fatal("expected the notification on every subscriber")
		}
	}
}
