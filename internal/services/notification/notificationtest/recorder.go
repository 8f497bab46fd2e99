// Package notificationtest provides an in-memory publisher for tests.
package notificationtest

import (
	"context"
	"sync"

	"restaurant-pos/internal/models"
)

// Recorder is a notification.Publisher that keeps every event in memory.
// Err, when set, is returned from each Publish.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// OnTopic returns the events published to topic
func (r *Recorder) OnTopic(topic string) []models.Event {
	var out []models.Event
	for _, event := range r.Events() {
		if event.Topic == topic {
			out = append(out, event)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
