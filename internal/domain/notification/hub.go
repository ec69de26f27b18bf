package notification

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Event is what a connected client receives.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	EventNotification = "notification"
	EventPong         = "pong"
)

// connection is a single websocket client. A user may hold several.
type connection struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks the open websocket connections per user.
type Hub struct {
	mu          sync.RWMutex
	connections map[int64]map[*connection]struct{}
	log         *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		connections: make(map[int64]map[*connection]struct{}),
		log:         log,
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.userID]
	if !ok {
		set = make(map[*connection]struct{})
		h.connections[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.connections, c.userID)
	}
}

// Connected reports how many connections userID currently holds.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Push sends event to every connection of userID. It reports whether at
// least one connection accepted it; slow clients are skipped.
func (h *Hub) Push(userID int64, event *Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("marshal websocket event", zap.Error(err))
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := false
	for c := range h.connections[userID] {
		select {
		case c.send <- data:
			delivered = true
		default:
		}
	}
	return delivered
}

// ServeWS registers conn for userID and blocks until it disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn, userID int64) {
	c := &connection{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.register(c)
	h.log.Debug("websocket connected", zap.Int64("user_id", userID))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.log.Debug("websocket disconnected", zap.Int64("user_id", c.userID))
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var in struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &in); err != nil {
			continue
		}
		if in.Type == "ping" {
			h.Push(c.userID, &Event{Type: EventPong})
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
