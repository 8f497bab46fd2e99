// Package notification fans state changes out to named topics consumed by
// kitchen and waitstaff views. Publishing is best-effort: a failure is logged
// and never undoes the state change that produced the event.
package notification

import (
	"context"
	"fmt"
	"strings"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

const (
	// TopicOrderReady is consumed by waitstaff to pick up finished orders
	TopicOrderReady = "kitchen.ready"
	// TopicStockAlerts carries FAIBLE and RUPTURE alerts
	TopicStockAlerts = "stock.alerts"
)

// TopicOrderUpdates is the per-table channel for dine-in orders and the
// per-order channel for takeout.
func TopicOrderUpdates(order models.Order) string {
	if order.TableID != nil {
		return fmt.Sprintf("orders.table.%d", *order.TableID)
	}
	return fmt.Sprintf("orders.order.%d", order.ID)
}

// Publisher delivers one event to its topic
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, event models.Event) error

func (f PublisherFunc) Publish(ctx context.Context, event models.Event) error {
	return f(ctx, event)
}

// Pending collects events raised inside a transaction so they can be
// published once it commits.
type Pending struct {
	events []models.Event
}

// Add queues an event; a payload that cannot be encoded is an internal error
func (p *Pending) Add(eventType models.EventType, topic string, payload interface{}) error {
	event, err := models.NewEvent(eventType, topic, payload)
	if err != nil {
		return err
	}
	p.events = append(p.events, event)
	return nil
}

// OrderUpdated queues a snapshot of order on its table or order topic
func (p *Pending) OrderUpdated(order models.Order) error {
	return p.Add(models.EventOrderUpdated, TopicOrderUpdates(order), order)
}

// OrderReady queues a snapshot of order for waitstaff pickup
func (p *Pending) OrderReady(order models.Order) error {
	return p.Add(models.EventOrderReady, TopicOrderReady, order)
}

func (p *Pending) Events() []models.Event {
	return p.events
}

// Flush publishes queued events in order and logs failures
func (p *Pending) Flush(ctx context.Context, pub Publisher, log *logger.Logger) {
	for _, event := range p.events {
		if err := pub.Publish(ctx, event); err != nil {
			log.Error("notification_publish_failed", "Failed to publish notification", logger.RequestID(ctx), err, map[string]interface{}{
				"topic": event.Topic,
				"type":  string(event.Type),
			})
		}
	}
	p.events = nil
}

// MatchTopic reports whether topic matches an AMQP-style pattern where "*"
// matches one dot-separated word and "#" matches zero or more.
func MatchTopic(pattern, topic string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(topic, "."))
}

func matchWords(pattern, topic []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(topic); i++ {
				if matchWords(pattern[1:], topic[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(topic) == 0 {
				return false
			}
		default:
			if len(topic) == 0 || topic[0] != pattern[0] {
				return false
			}
		}
		pattern, topic = pattern[1:], topic[1:]
	}
	return len(topic) == 0
}
