package notification

import (
	"context"
	"sync"

	"restaurant-pos/internal/models"
)

// Bus is an in-process publish/subscribe fan-out. Slow subscribers lose
// events instead of blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
}

type subscription struct {
	pattern string
	ch      chan models.Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe returns a channel receiving events whose topic matches pattern
// and a function that ends the subscription.
func (b *Bus) Subscribe(pattern string, buffer int) (<-chan models.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan models.Event, buffer)
	b.subs[id] = subscription{pattern: pattern, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Publish(_ context.Context, event models.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !MatchTopic(sub.pattern, event.Topic) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}
