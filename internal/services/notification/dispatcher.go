package notification

import (
	"context"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
)

// Dispatcher decouples callers from the downstream publishers. Publish only
// enqueues; Run delivers in publish order on a single goroutine.
type Dispatcher struct {
	queue   chan models.Event
	targets []Publisher
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(buffer int, log *logger.Logger, m *metrics.Metrics, targets ...Publisher) *Dispatcher {
	return &Dispatcher{
		queue:   make(chan models.Event, buffer),
		targets: targets,
		logger:  log,
		metrics: m,
	}
}

// Publish enqueues the event without blocking; a full queue drops it
func (d *Dispatcher) Publish(ctx context.Context, event models.Event) error {
	select {
	case d.queue <- event:
		d.countAlert(event)
	default:
		d.metrics.NotificationDropped()
		d.logger.Warn("notification_dropped", "Notification queue full, event dropped", logger.RequestID(ctx), map[string]interface{}{
			"topic": event.Topic,
			"type":  string(event.Type),
		})
	}
	return nil
}

// countAlert records accepted stock alerts by level
func (d *Dispatcher) countAlert(event models.Event) {
	if event.Type != models.EventStockAlert {
		return
	}
	var alert models.StockAlert
	if err := event.Decode(&alert); err == nil {
		d.metrics.StockAlert(string(alert.Level))
	}
}

// Run delivers queued events until ctx is done, then drains what is left
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case event := <-d.queue:
			d.deliver(context.WithoutCancel(ctx), event)
		case <-ctx.Done():
			for {
				select {
				case event := <-d.queue:
					d.deliver(context.WithoutCancel(ctx), event)
				default:
					return nil
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event models.Event) {
	for _, target := range d.targets {
		if err := target.Publish(ctx, event); err != nil {
			d.metrics.NotificationFailed()
			d.logger.Error("notification_publish_failed", "Failed to deliver notification", "", err, map[string]interface{}{
				"topic":    event.Topic,
				"type":     string(event.Type),
				"event_id": event.ID,
			})
		}
	}
}
