package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"cart-gateway/events"
	"cart-gateway/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer receives cart-changed notices from sibling instances and
// republishes them on the local bus as storage.changed. Notices tagged with
// this instance's own ID are dropped, mirroring how a browser tab never
// receives its own storage events.
type Consumer struct {
	channel    *amqp.Channel
	queueName  string
	instanceID string
	bus        *events.Bus
	log        *logrus.Entry
}

func NewConsumer(conn *amqp.Connection, exchange, instanceID string, bus *events.Bus) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	// Each instance gets its own throwaway queue bound to the fanout
	// exchange; the broker deletes it when the instance disconnects.
	queue, err := ch.QueueDeclare(
		"",    // name (broker-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare notice queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind notice queue: %w", err)
	}

	return &Consumer{
		channel:    ch,
		queueName:  queue.Name,
		instanceID: instanceID,
		bus:        bus,
		log:        logrus.WithField("component", "cart-notice-consumer"),
	}, nil
}

// Run consumes notices until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	defer c.channel.Close()

	msgs, err := c.channel.Consume(
		c.queueName,             // queue
		"notice-"+c.instanceID,  // consumer tag
		true,                    // auto-ack (notices are advisory)
		false,                   // exclusive
		false,                   // no-local
		false,                   // no-wait
		nil,                     // args
	)
	if err != nil {
		c.log.WithError(err).Error("failed to register notice consumer")
		return
	}

	c.log.Info("cart notice consumer started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.handle(msg)
		}
	}
}

func (c *Consumer) handle(msg amqp.Delivery) {
	var notice models.CartNotice
	if err := json.Unmarshal(msg.Body, &notice); err != nil {
		c.log.WithError(err).Warn("discarding malformed cart notice")
		return
	}
	if notice.InstanceID == c.instanceID {
		return
	}
	c.log.WithField("origin", notice.InstanceID).Debug("cart changed in another instance")
	c.bus.Publish(events.TopicStorageChanged)
}
