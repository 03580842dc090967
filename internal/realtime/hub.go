package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub maintains the set of live WebSocket connections and their room
// membership, and delivers events to one client, a room, or everyone.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // clientID -> client
	rooms   map[string]map[string]*Client // room -> clientID -> client
	logger  *zap.Logger
}

// NewHub creates a WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger,
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("client_id", c.ID))
}

// Unregister removes a client and its room memberships. Safe to call more
// than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// JoinRoom adds a client to a named room. Unknown client ids are ignored.
func (h *Hub) JoinRoom(clientID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][clientID] = c
}

// SendToClient delivers an event to a single client. Unknown ids are a no-op.
func (h *Hub) SendToClient(clientID, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c != nil {
		c.trySend(msg)
	}
}

// BroadcastToRoom delivers an event to every client in a room.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		c.trySend(msg)
	}
}

// BroadcastAll delivers an event to every connected client.
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.trySend(msg)
	}
}

// Disconnect force-closes a client's connection. Queued messages (e.g. a
// kicked notice) are flushed before the close frame.
func (h *Hub) Disconnect(clientID string) {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c != nil {
		c.closeSend()
	}
}

func encode(event string, payload interface{}) (WSMessage, error) {
	var data []byte
	var err error
	switch v := payload.(type) {
	case nil:
		// events like kicked carry no payload
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, err = json.Marshal(payload)
		if err != nil {
			return WSMessage{}, err
		}
	}
	return WSMessage{Event: event, Data: data}, nil
}
