package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/cva-pasha/covali-templates/internal/adapter/events"
	"github.com/cva-pasha/covali-templates/internal/domain"
)

const writeTimeout = 5 * time.Second

// Hub pushes template events to every connected websocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Accept(w http.ResponseWriter, r *http.Request) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return conn.Close(websocket.StatusGoingAway, "shutting down")
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readPump(conn)
	return nil
}

func (h *Hub) Publish(_ context.Context, e domain.TemplateEvent) error {
	data, err := json.Marshal(events.NewTemplateEventPayload(e))
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := c.Write(ctx, websocket.MessageText, data); err != nil {
				h.removeClient(c)
			}
		}(conn)
	}
}

func (h *Hub) readPump(conn *websocket.Conn) {
	defer h.removeClient(conn)
	for {
		_, _, err := conn.Read(context.Background())
		if err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// Close disconnects all clients and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "shutting down")
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
