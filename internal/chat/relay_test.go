package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classlive/backend/internal/models"
)

type fakeStore struct {
	inserted []*models.ChatMessage
	err      error
}

func (s *fakeStore) Insert(_ context.Context, m *models.ChatMessage) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, m)
	return nil
}

type fakeBroadcaster struct {
	events   []string
	payloads []interface{}
}

func (b *fakeBroadcaster) BroadcastAll(event string, payload interface{}) {
	b.events = append(b.events, event)
	b.payloads = append(b.payloads, payload)
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (p *fakePublisher) PublishChat(payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, payload)
	return nil
}

type fakeIdentities struct {
	name, role string
}

func (i *fakeIdentities) SenderInfo(string) (string, string) { return i.name, i.role }

func TestRelayStoresAndBroadcastsLocally(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeBroadcaster{}
	relay := NewRelay(store, hub, nil, &fakeIdentities{name: "Ann", role: models.RoleStudent}, zap.NewNop())

	relay.HandleChatMessage(context.Background(), "conn-1", "hello")

	require.Len(t, store.inserted, 1)
	require.Equal(t, "Ann", store.inserted[0].Sender)
	require.Equal(t, models.RoleStudent, store.inserted[0].Role)
	require.Equal(t, "hello", store.inserted[0].Message)

	require.Equal(t, []string{"new-message"}, hub.events)
}

func TestRelayPublishesInsteadOfBroadcastingWhenRedisIsUp(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeBroadcaster{}
	pub := &fakePublisher{}
	relay := NewRelay(store, hub, pub, &fakeIdentities{name: "Teacher", role: models.RoleTeacher}, zap.NewNop())

	relay.HandleChatMessage(context.Background(), "conn-1", "hi class")

	require.Len(t, pub.published, 1)
	require.Empty(t, hub.events, "subscriber callback does the one broadcast")

	var m models.ChatMessage
	require.NoError(t, json.Unmarshal(pub.published[0], &m))
	require.Equal(t, "Teacher", m.Sender)
	require.Equal(t, "hi class", m.Message)
}

func TestRelayFallsBackToLocalOnPublishError(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeBroadcaster{}
	pub := &fakePublisher{err: errors.New("redis down")}
	relay := NewRelay(store, hub, pub, &fakeIdentities{name: "Ann", role: models.RoleStudent}, zap.NewNop())

	relay.HandleChatMessage(context.Background(), "conn-1", "hello")
	require.Equal(t, []string{"new-message"}, hub.events)
}

func TestRelayFansOutEvenWhenStoreFails(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	hub := &fakeBroadcaster{}
	relay := NewRelay(store, hub, nil, &fakeIdentities{name: "Ann", role: models.RoleStudent}, zap.NewNop())

	relay.HandleChatMessage(context.Background(), "conn-1", "hello")
	require.Equal(t, []string{"new-message"}, hub.events)
}
