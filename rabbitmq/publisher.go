package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cart-gateway/cartstore"
	"cart-gateway/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher fans cart-changed notices out to sibling gateway instances.
// Every notice carries this instance's ID so receivers can skip their own.
type Publisher struct {
	pool       *ChannelPool
	exchange   string
	instanceID string
	log        *logrus.Entry
}

func NewPublisher(pool *ChannelPool, exchange, instanceID string) *Publisher {
	return &Publisher{
		pool:       pool,
		exchange:   exchange,
		instanceID: instanceID,
		log:        logrus.WithField("component", "cart-notifier"),
	}
}

// PublishCartChanged announces that this instance changed the persisted
// guest cart.
func (p *Publisher) PublishCartChanged() error {
	ch, err := p.pool.GetChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel from pool: %w", err)
	}
	defer p.pool.ReturnChannel(ch)

	notice := models.CartNotice{
		InstanceID: p.instanceID,
		Key:        cartstore.CartKey,
		ChangedAt:  time.Now().UTC(),
	}
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		p.exchange, // exchange
		"",         // routing key (fanout ignores it)
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish cart notice: %w", err)
	}

	p.log.Debug("published cart-changed notice")
	return nil
}
