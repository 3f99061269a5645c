package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// HubConfig configures WebSocket client handling.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a client may stay silent (pongs included).
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing one message.
	WriteTimeout time.Duration
	// ClientBuffer is the per-client send queue size.
	ClientBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		ClientBuffer: 64,
	}
}

// Hub pushes bus events to connected WebSocket clients.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *logrus.Entry

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a hub. Call Run to start forwarding events.
func NewHub(config HubConfig, logger *logrus.Entry) *Hub {
	if logger == nil {
		logger = logrus.WithField("component", "ws_hub")
	}
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// the API is served to a local UI of any origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Run broadcasts events from src until ctx is done or src is closed.
func (h *Hub) Run(ctx context.Context, src <-chan Event) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-src:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				h.logger.WithError(err).WithField("type", e.Type).Warn("failed to marshal event")
				continue
			}
			h.broadcast(payload)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debug("client send queue full, message dropped")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, h.config.ClientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards client messages and unregisters the client on error.
func (h *Hub) readLoop(c *hubClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			c.close()
		}
		h.mu.Unlock()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
