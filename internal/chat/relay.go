package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classlive/backend/internal/models"
)

// Identities resolves a connection id to a chat sender. The session
// coordinator's registry backs this.
type Identities interface {
	SenderInfo(clientID string) (name, role string)
}

// Broadcaster fans a chat event out to every connected client on this process.
type Broadcaster interface {
	BroadcastAll(event string, payload interface{})
}

// Publisher pushes chat payloads to the process-group channel. When set, the
// relay publishes only and lets the subscriber callback do the one broadcast,
// so delivery is identical with one or many server processes.
type Publisher interface {
	PublishChat(payload []byte) error
}

// MessageStore persists chat messages.
type MessageStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
}

// Relay stores then fans out chat messages. It sits outside the session
// coordinator: no invariants beyond storage-then-fanout.
type Relay struct {
	repo      MessageStore
	hub       Broadcaster
	publisher Publisher
	ids       Identities
	logger    *zap.Logger
}

// NewRelay creates a chat relay. publisher may be nil (no Redis configured).
func NewRelay(repo MessageStore, hub Broadcaster, publisher Publisher, ids Identities, logger *zap.Logger) *Relay {
	return &Relay{repo: repo, hub: hub, publisher: publisher, ids: ids, logger: logger}
}

// HandleChatMessage persists the message and fans out new-message to everyone.
func (r *Relay) HandleChatMessage(ctx context.Context, clientID, message string) {
	name, role := r.ids.SenderInfo(clientID)
	m := &models.ChatMessage{
		ID:        uuid.New(),
		Sender:    name,
		Role:      role,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := r.repo.Insert(ctx, m); err != nil {
		r.logger.Warn("store chat message", zap.Error(err))
	}

	if r.publisher != nil {
		payload, err := json.Marshal(m)
		if err != nil {
			return
		}
		if err := r.publisher.PublishChat(payload); err == nil {
			return
		}
		r.logger.Warn("publish chat message, falling back to local broadcast")
	}
	r.hub.BroadcastAll("new-message", m)
}
