// Package ws streams detection events to dashboard clients over WebSocket.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/facewatch/internal/models"
	"github.com/your-org/facewatch/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one connected dashboard. A non-empty camera restricts the
// events it receives to that camera.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	camera string
}

// Hub fans detection events out to every connected client. Slow clients
// whose send buffer fills are dropped rather than blocking the rest.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan models.DetectionEvent
	register   chan *client
	unregister chan *client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan models.DetectionEvent, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run drives the hub event loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws client connected", "camera_filter", c.camera)

		case c := <-h.unregister:
			h.drop(c)
			slog.Debug("ws client disconnected")

		case ev := <-h.broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("marshal detection event", "error", err)
				continue
			}

			h.mu.Lock()
			var stalled []*client
			for c := range h.clients {
				if c.camera != "" && c.camera != ev.Camera {
					continue
				}
				select {
				case c.send <- payload:
				default:
					stalled = append(stalled, c)
				}
			}
			h.mu.Unlock()

			for _, c := range stalled {
				h.drop(c)
				slog.Debug("ws client dropped, send buffer full")
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		observability.WSConnections.Dec()
	}
}

// BroadcastDetection queues a detection event for all connected clients.
func (h *Hub) BroadcastDetection(ev models.DetectionEvent) {
	select {
	case h.broadcast <- ev:
	default:
		slog.Warn("ws broadcast queue full, dropping event", "camera", ev.Camera)
	}
}

// HandleWS upgrades the request and registers the client. The optional
// ?camera= query parameter filters the events delivered.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	cl := &client{
		conn:   conn,
		send:   make(chan []byte, 64),
		camera: c.Query("camera"),
	}

	h.register <- cl

	go cl.writePump()
	go cl.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump discards client messages; it exists to notice disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
