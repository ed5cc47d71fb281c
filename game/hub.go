package game

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Envelope frames every message on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one authenticated websocket connection.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Username string
	UserID   int

	mu       sync.Mutex
	isClosed bool
}

// Registry is the orchestrator's view of the hub: connection presence and
// event emission, nothing transport-specific.
type Registry interface {
	IsOnline(username string) bool
	UserID(username string) (int, bool)
	EmitToUser(username, event string, payload interface{})
	BroadcastToRoom(room, event string, payload interface{})
}

// Hub tracks connected clients by username and their room memberships. All
// map mutation happens in Run's single loop or under mu.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	// OnEvent is invoked for every inbound envelope. OnDisconnect fires
	// after a client is removed from the registry. Both are set once before
	// Run starts.
	OnEvent      func(client *Client, event string, data json.RawMessage)
	OnDisconnect func(username string)

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if previous, ok := h.clients[client.Username]; ok && previous != client {
				previous.closeSend()
			}
			h.clients[client.Username] = client
			h.mu.Unlock()
			h.logger.Info("client connected", slog.String("username", client.Username))

		case client := <-h.Unregister:
			h.mu.Lock()
			current, ok := h.clients[client.Username]
			if ok && current == client {
				delete(h.clients, client.Username)
				for room, members := range h.rooms {
					delete(members, client.Username)
					if len(members) == 0 {
						delete(h.rooms, room)
					}
				}
			}
			h.mu.Unlock()
			client.closeSend()
			if ok && current == client {
				h.logger.Info("client disconnected", slog.String("username", client.Username))
				if h.OnDisconnect != nil {
					h.OnDisconnect(client.Username)
				}
			}
		}
	}
}

func (h *Hub) IsOnline(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[username]
	return ok
}

func (h *Hub) UserID(username string) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[username]
	if !ok {
		return 0, false
	}
	return client.UserID, true
}

// JoinRoom subscribes the client's connection to room broadcasts. Access
// control happens before this is called.
func (h *Hub) JoinRoom(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[client.Username] = client
}

// JoinUserToRoom is JoinRoom keyed by username, for callers that hold an
// identity rather than a connection. Returns false if the user is offline.
func (h *Hub) JoinUserToRoom(room, username string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[username]
	if !ok {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[username] = client
	return true
}

func (h *Hub) LeaveRoom(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client.Username)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) EmitToUser(username, event string, payload interface{}) {
	h.mu.RLock()
	client, ok := h.clients[username]
	h.mu.RUnlock()
	if !ok {
		return
	}
	client.send(h.marshal(event, payload))
}

func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) {
	h.mu.RLock()
	members, ok := h.rooms[room]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(members))
	for _, client := range members {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	message := h.marshal(event, payload)
	for _, client := range clients {
		client.send(message)
	}
}

func (h *Hub) marshal(event string, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal event payload",
			slog.String("event", event), slog.Any("error", err))
		data = nil
	}
	message, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to marshal envelope",
			slog.String("event", event), slog.Any("error", err))
		return nil
	}
	return message
}

func (c *Client) send(message []byte) {
	if message == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return
	}
	select {
	case c.Send <- message:
	default:
		// Slow consumer; drop rather than block the emitter.
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.Send)
		c.isClosed = true
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("unexpected websocket close",
					slog.String("username", c.Username), slog.Any("error", err))
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			c.Hub.logger.Warn("dropping malformed message",
				slog.String("username", c.Username), slog.Any("error", err))
			continue
		}
		if c.Hub.OnEvent != nil {
			c.Hub.OnEvent(c, envelope.Event, envelope.Data)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
