package notification

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/services/notification/notificationtest"
)

func event(t *testing.T, topic string) models.Event {
	t.Helper()
	e, err := models.NewEvent(models.EventOrderUpdated, topic, map[string]string{"k": "v"})
	require.NoError(t, err)
	return e
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"kitchen.ready", "kitchen.ready", true},
		{"kitchen.ready", "kitchen.readyx", false},
		{"orders.table.*", "orders.table.5", true},
		{"orders.table.*", "orders.table.5.extra", false},
		{"orders.*.5", "orders.table.5", true},
		{"orders.#", "orders.order.12", true},
		{"orders.#", "orders", true},
		{"#", "stock.alerts", true},
		{"#.alerts", "stock.alerts", true},
		{"*", "stock.alerts", false},
		{"stock.alerts", "kitchen.ready", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTopic(tt.pattern, tt.topic))
		})
	}
}

func TestTopicOrderUpdates(t *testing.T) {
	table := int64(4)
	assert.Equal(t, "orders.table.4", TopicOrderUpdates(models.Order{ID: 9, TableID: &table}))
	assert.Equal(t, "orders.order.9", TopicOrderUpdates(models.Order{ID: 9}))
}

func TestPendingFlush(t *testing.T) {
	var pending Pending
	require.NoError(t, pending.Add(models.EventOrderUpdated, "orders.order.1", map[string]int{"id": 1}))
	require.NoError(t, pending.Add(models.EventOrderReady, TopicOrderReady, map[string]int{"id": 1}))

	rec := &notificationtest.Recorder{}
	pending.Flush(context.Background(), rec, logger.Discard())

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, models.EventOrderUpdated, events[0].Type)
	assert.Equal(t, TopicOrderReady, events[1].Topic)
	assert.Empty(t, pending.Events())
}

func TestPendingFlushIgnoresPublisherFailure(t *testing.T) {
	var pending Pending
	require.NoError(t, pending.Add(models.EventStockAlert, TopicStockAlerts, map[string]int{"id": 1}))

	rec := &notificationtest.Recorder{Err: errors.New("broker down")}
	assert.NotPanics(t, func() {
		pending.Flush(context.Background(), rec, logger.Discard())
	})
	assert.Len(t, rec.Events(), 1)
}

func TestBus(t *testing.T) {
	bus := NewBus()
	tables, cancelTables := bus.Subscribe("orders.table.*", 4)
	kitchen, cancelKitchen := bus.Subscribe(TopicOrderReady, 4)
	defer cancelKitchen()

	require.NoError(t, bus.Publish(context.Background(), event(t, "orders.table.3")))
	require.NoError(t, bus.Publish(context.Background(), event(t, TopicOrderReady)))

	got := <-tables
	assert.Equal(t, "orders.table.3", got.Topic)
	got = <-kitchen
	assert.Equal(t, TopicOrderReady, got.Topic)

	assert.Len(t, tables, 0)

	cancelTables()
	cancelTables()
	_, open := <-tables
	assert.False(t, open)
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe("#", 1)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), event(t, "a")))
	require.NoError(t, bus.Publish(context.Background(), event(t, "b")))

	assert.Equal(t, "a", (<-ch).Topic)
	assert.Len(t, ch, 0)
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	rec := &notificationtest.Recorder{}
	d := NewDispatcher(8, logger.Discard(), nil, rec)

	for _, topic := range []string{"one", "two", "three"} {
		require.NoError(t, d.Publish(context.Background(), event(t, topic)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "one", events[0].Topic)
	assert.Equal(t, "three", events[2].Topic)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	m := metrics.New("test")
	d := NewDispatcher(1, logger.Discard(), m, &notificationtest.Recorder{})

	require.NoError(t, d.Publish(context.Background(), event(t, "kept")))
	require.NoError(t, d.Publish(context.Background(), event(t, "dropped")))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsDropped))
}

func TestDispatcherCountsOnlyAcceptedStockAlerts(t *testing.T) {
	m := metrics.New("test")
	d := NewDispatcher(1, logger.Discard(), m, &notificationtest.Recorder{})

	alert := func(level models.AlertLevel) models.Event {
		e, err := models.NewEvent(models.EventStockAlert, TopicStockAlerts, models.StockAlert{IngredientID: 1, Level: level})
		require.NoError(t, err)
		return e
	}

	require.NoError(t, d.Publish(context.Background(), alert(models.AlertLow)))
	require.NoError(t, d.Publish(context.Background(), alert(models.AlertOut)))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StockAlerts.WithLabelValues(string(models.AlertLow))))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.StockAlerts.WithLabelValues(string(models.AlertOut))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsDropped))
}

func TestDispatcherCountsFailures(t *testing.T) {
	m := metrics.New("test")
	rec := &notificationtest.Recorder{Err: errors.New("nope")}
	d := NewDispatcher(4, logger.Discard(), m, rec)

	require.NoError(t, d.Publish(context.Background(), event(t, "x")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsFailed))
}

type fakeBroker struct {
	topic   string
	message interface{}
}

func (f *fakeBroker) PublishEvent(_ context.Context, topic string, message interface{}) error {
	f.topic = topic
	f.message = message
	return nil
}

func TestBrokerPublisher(t *testing.T) {
	broker := &fakeBroker{}
	e := event(t, "orders.table.1")

	require.NoError(t, NewBrokerPublisher(broker).Publish(context.Background(), e))
	assert.Equal(t, "orders.table.1", broker.topic)
	assert.Equal(t, e, broker.message)
}

func TestSubscriberHandleMessage(t *testing.T) {
	rec := &notificationtest.Recorder{}
	s := NewSubscriber(nil, rec, logger.Discard())

	body := []byte(`{"id":"e1","type":"order.ready","topic":"kitchen.ready","occurred_at":"2026-01-02T10:00:00Z","payload":{"id":7}}`)
	require.NoError(t, s.HandleMessage(context.Background(), body))

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, "e1", rec.Events()[0].ID)

	assert.Error(t, s.HandleMessage(context.Background(), []byte("not json")))
}

func TestDescribe(t *testing.T) {
	order := models.Order{ID: 7, Status: models.StatusReady, Total: decimal.RequireFromString("11925")}
	ready, err := models.NewEvent(models.EventOrderReady, TopicOrderReady, order)
	require.NoError(t, err)
	assert.Contains(t, Describe(ready), "Order 7 is ready")

	updated, err := models.NewEvent(models.EventOrderUpdated, "orders.order.7", order)
	require.NoError(t, err)
	assert.Contains(t, Describe(updated), "11925.00")

	alert, err := models.NewEvent(models.EventStockAlert, TopicStockAlerts, models.StockAlert{
		Name: "Tomate", Level: models.AlertLow, Quantity: decimal.NewFromInt(1), Unit: "kg",
	})
	require.NoError(t, err)
	assert.Contains(t, Describe(alert), "FAIBLE for Tomate")
}

func TestHubDeliversMatchingTopics(t *testing.T) {
	hub := NewHub(logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topic=orders.table.*"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, event(t, TopicOrderReady)))
	require.NoError(t, hub.Publish(ctx, event(t, "orders.table.2")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "orders.table.2", got.Topic)
}
