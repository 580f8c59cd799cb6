package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// InboundMessage is a client event whose payload is decoded once its type
// is known.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	// WriteWait bounds every write to a peer.
	WriteWait = 10 * time.Second
	// PongWait is how long a connection may stay silent before its read
	// deadline expires. Pings go out well within it.
	PongWait   = 60 * time.Second
	pingPeriod = (PongWait * 9) / 10
	// sendBuffer is how many outbound messages may queue for one client
	// before it is treated as stalled and dropped.
	sendBuffer = 64
)

// Conn is the part of a websocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered connection. Only its write pump writes to conn.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// enqueue hands data to the write pump without blocking. The caller holds
// the hub lock, so send is never closed underneath it.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Hub tracks connections and the session pins they follow. Send and
// Broadcast only queue messages; each client's pump does the network
// write, so a stalled peer never holds up the others.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		log:     log,
	}
}

func (h *Hub) Register(conn Conn) *Client {
	client := &Client{ID: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	go h.writePump(client)

	h.log.Debug("ws: client connected", zap.String("conn_id", client.ID))
	return client
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				return
			}
			if err := client.write(websocket.TextMessage, data); err != nil {
				h.log.Warn("ws: write error", zap.String("conn_id", client.ID), zap.Error(err))
				h.Unregister(client.ID)
				return
			}
		case <-ticker.C:
			if err := client.write(websocket.PingMessage, nil); err != nil {
				h.log.Debug("ws: ping failed", zap.String("conn_id", client.ID), zap.Error(err))
				h.Unregister(client.ID)
				return
			}
		}
	}
}

// Unregister drops a client from every room and closes its connection.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		close(client.send)
		for pin, members := range h.rooms {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, pin)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		_ = client.conn.Close()
		h.log.Debug("ws: client disconnected", zap.String("conn_id", connID))
	}
}

func (h *Hub) Subscribe(pin, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.rooms[pin] == nil {
		h.rooms[pin] = make(map[string]*Client)
	}
	h.rooms[pin][connID] = client
	h.log.Debug("ws: client subscribed",
		zap.String("conn_id", connID),
		zap.String("pin", pin),
		zap.Int("total", len(h.rooms[pin])),
	)
}

// RoomSize returns the number of connections following a pin.
func (h *Hub) RoomSize(pin string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[pin])
}

func (h *Hub) Send(connID string, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("ws: marshal error", zap.String("type", message.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	queued := ok && client.enqueue(data)
	h.mu.RUnlock()

	if ok && !queued {
		h.log.Warn("ws: send buffer full, dropping client", zap.String("conn_id", connID))
		h.Unregister(connID)
	}
}

func (h *Hub) Broadcast(pin string, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("ws: marshal error", zap.String("type", message.Type), zap.Error(err))
		return
	}

	var stalled []string
	h.mu.RLock()
	for connID, client := range h.rooms[pin] {
		if !client.enqueue(data) {
			stalled = append(stalled, connID)
		}
	}
	h.mu.RUnlock()

	for _, connID := range stalled {
		h.log.Warn("ws: send buffer full, dropping client", zap.String("conn_id", connID), zap.String("pin", pin))
		h.Unregister(connID)
	}
}
