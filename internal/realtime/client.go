package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventHandler receives decoded session events from client connections. The
// session coordinator implements this.
type EventHandler interface {
	HandleTeacherJoin(clientID string)
	HandleStudentJoin(ctx context.Context, clientID, name string)
	HandleCreatePoll(ctx context.Context, clientID, question string, options []string, maxTime int)
	HandleSubmitAnswer(ctx context.Context, clientID string, optionIndex int)
	HandleEndPoll(ctx context.Context, clientID string)
	HandleKickStudent(ctx context.Context, clientID, studentID string)
	HandleDisconnect(clientID string)
}

// ChatHandler receives chat messages; the chat relay implements this.
type ChatHandler interface {
	HandleChatMessage(ctx context.Context, clientID, message string)
}

// Client represents a single WebSocket connection.
type Client struct {
	ID string

	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	sendMu     sync.Mutex
	send       chan WSMessage
	sendClosed bool
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, handler EventHandler, chat ChatHandler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, 256),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump(handler, chat)
	}
}

// trySend queues a message without blocking; when the buffer is full the
// message is dropped for this client.
func (c *Client) trySend(msg WSMessage) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// closeSend shuts the outbound queue; writePump drains what is left, writes a
// close frame, and closes the connection.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

func (c *Client) readPump(handler EventHandler, chat ChatHandler) {
	defer func() {
		c.hub.Unregister(c)
		handler.HandleDisconnect(c.ID)
		c.closeSend()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		ctx := context.Background()
		switch msg.Event {
		case "teacher-join":
			handler.HandleTeacherJoin(c.ID)
		case "student-join":
			var name string
			if err := json.Unmarshal(msg.Data, &name); err == nil && name != "" {
				handler.HandleStudentJoin(ctx, c.ID, name)
			}
		case "create-poll":
			var payload struct {
				Question string   `json:"question"`
				Options  []string `json:"options"`
				MaxTime  int      `json:"maxTime"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err == nil {
				handler.HandleCreatePoll(ctx, c.ID, payload.Question, payload.Options, payload.MaxTime)
			}
		case "submit-answer":
			var payload struct {
				OptionIndex int `json:"optionIndex"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err == nil {
				handler.HandleSubmitAnswer(ctx, c.ID, payload.OptionIndex)
			}
		case "end-poll":
			handler.HandleEndPoll(ctx, c.ID)
		case "kick-student":
			var studentID string
			if err := json.Unmarshal(msg.Data, &studentID); err == nil && studentID != "" {
				handler.HandleKickStudent(ctx, c.ID, studentID)
			}
		case "send-message":
			var payload struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err == nil && payload.Message != "" {
				chat.HandleChatMessage(ctx, c.ID, payload.Message)
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
