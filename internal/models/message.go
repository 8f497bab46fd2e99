package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names the kind of notification carried by an Event
type EventType string

const (
	EventOrderUpdated EventType = "order.updated"
	EventOrderReady   EventType = "order.ready"
	EventStockAlert   EventType = "stock.alert"
)

// Event is the envelope published on a notification topic. Payload holds a
// snapshot of the affected entity.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Topic      string          `json:"topic"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent serializes payload into a fresh envelope
func NewEvent(eventType EventType, topic string, payload interface{}) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}
