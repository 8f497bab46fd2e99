package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/models"
)

// Subscriber consumes events from the broker queue and forwards them to a
// local publisher, typically the websocket Hub.
type Subscriber struct {
	consumer *messaging.Consumer
	target   Publisher
	logger   *logger.Logger
}

func NewSubscriber(consumer *messaging.Consumer, target Publisher, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		target:   target,
		logger:   log,
	}
}

// Start blocks until ctx is done or the consumer fails
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.consumer.StartConsuming(ctx, s.HandleMessage)
	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Error("consumer_close_failed", "Failed to close consumer", requestID, closeErr, nil)
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
		return err
	}

	s.logger.Info("graceful_shutdown", "Notification subscriber stopped", requestID, nil)
	return nil
}

// HandleMessage decodes one broker delivery and forwards it
func (s *Subscriber) HandleMessage(ctx context.Context, body []byte) error {
	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	s.logger.Info("notification_received", Describe(event), event.ID, map[string]interface{}{
		"topic": event.Topic,
		"type":  string(event.Type),
	})

	return s.target.Publish(ctx, event)
}

// Describe renders a one-line human readable summary of an event
func Describe(event models.Event) string {
	timestamp := event.OccurredAt.Format("2006-01-02 15:04:05")

	switch event.Type {
	case models.EventOrderUpdated, models.EventOrderReady:
		var order models.Order
		if err := event.Decode(&order); err != nil {
			break
		}
		if event.Type == models.EventOrderReady {
			return fmt.Sprintf("[%s] Order %d is ready to be served", timestamp, order.ID)
		}
		return fmt.Sprintf("[%s] Order %d is %s, total %s", timestamp, order.ID, order.Status, order.Total.StringFixed(2))
	case models.EventStockAlert:
		var alert models.StockAlert
		if err := event.Decode(&alert); err != nil {
			break
		}
		return fmt.Sprintf("[%s] Stock %s for %s: %s %s left", timestamp, alert.Level, alert.Name, alert.Quantity.String(), alert.Unit)
	}
	return fmt.Sprintf("[%s] %s on %s", timestamp, event.Type, event.Topic)
}
