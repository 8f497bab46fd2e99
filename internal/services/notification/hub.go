package notification

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

const (
	writeWait     = 10 * time.Second
	clientBuffer  = 32
	defaultFilter = "#"
)

// Hub pushes events to websocket clients subscribed to a topic pattern
type Hub struct {
	clients    map[*client]bool
	broadcast  chan models.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.Mutex
	logger     *logger.Logger
	upgrader   websocket.Upgrader
}

type client struct {
	conn    *websocket.Conn
	pattern string
	send    chan models.Event
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan models.Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run owns the client set until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if !MatchTopic(c.pattern, event.Topic) {
					continue
				}
				select {
				case c.send <- event:
				default:
					h.logger.Warn("ws_client_slow", "Websocket client too slow, disconnecting", "", map[string]interface{}{
						"pattern": c.pattern,
					})
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish hands the event to Run for fan-out
func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades GET /ws?topic=<pattern>; no topic subscribes to everything
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("topic")
	if pattern == "" {
		pattern = defaultFilter
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws_upgrade_failed", "Failed to upgrade websocket connection", "", err, nil)
		return
	}

	c := &client{conn: conn, pattern: pattern, send: make(chan models.Event, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	h.logger.Info("ws_client_connected", "Websocket client subscribed", "", map[string]interface{}{
		"pattern": pattern,
	})

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(event); err != nil {
			h.logger.Debug("ws_write_failed", "Websocket write failed", "", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readLoop discards inbound frames and notices when the peer goes away
func (h *Hub) readLoop(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
