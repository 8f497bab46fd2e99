package notification

import (
	"context"

	"restaurant-pos/internal/models"
)

// EventPublisher is the broker side, satisfied by *messaging.Publisher
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, message interface{}) error
}

// BrokerPublisher forwards events to RabbitMQ using the topic as routing key
type BrokerPublisher struct {
	broker EventPublisher
}

func NewBrokerPublisher(broker EventPublisher) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event models.Event) error {
	return p.broker.PublishEvent(ctx, event.Topic, event)
}
