package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(id string) *Client {
	return &Client{ID: id, send: make(chan WSMessage, 8)}
}

func drain(t *testing.T, c *Client) []WSMessage {
	t.Helper()
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHubSendToClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := testClient("a"), testClient("b")
	hub.Register(a)
	hub.Register(b)

	hub.SendToClient("a", "students-count", 3)

	msgs := drain(t, a)
	require.Len(t, msgs, 1)
	require.Equal(t, "students-count", msgs[0].Event)
	require.JSONEq(t, "3", string(msgs[0].Data))
	require.Empty(t, drain(t, b))
}

func TestHubRoomBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b, c := testClient("a"), testClient("b"), testClient("c")
	for _, cl := range []*Client{a, b, c} {
		hub.Register(cl)
	}
	hub.JoinRoom("a", "students")
	hub.JoinRoom("b", "students")

	hub.BroadcastToRoom("students", "poll-started", map[string]string{"question": "q"})

	require.Len(t, drain(t, a), 1)
	require.Len(t, drain(t, b), 1)
	require.Empty(t, drain(t, c), "client outside the room must not receive")
}

func TestHubBroadcastAll(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := testClient("a"), testClient("b")
	hub.Register(a)
	hub.Register(b)
	hub.JoinRoom("a", "students")

	hub.BroadcastAll("poll-ended", map[string]string{"status": "ended"})

	require.Len(t, drain(t, a), 1)
	require.Len(t, drain(t, b), 1)
}

func TestHubUnregisterLeavesRooms(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := testClient("a")
	hub.Register(a)
	hub.JoinRoom("a", "students")

	hub.Unregister(a)
	hub.BroadcastToRoom("students", "poll-started", nil)
	hub.SendToClient("a", "poll-started", nil)
	require.Empty(t, drain(t, a))

	// second unregister is a no-op
	hub.Unregister(a)
}

func TestHubDisconnectFlushesQueued(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := testClient("a")
	hub.Register(a)

	hub.SendToClient("a", "kicked", nil)
	hub.Disconnect("a")

	// the queued notice is still readable, then the channel reports closed
	msg, ok := <-a.send
	require.True(t, ok)
	require.Equal(t, "kicked", msg.Event)
	_, ok = <-a.send
	require.False(t, ok)

	// sends after close are dropped, not a panic
	a.trySend(WSMessage{Event: "late"})
}

func TestEncodePayloadForms(t *testing.T) {
	raw, err := encode("e", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1}`, string(raw.Data))

	bytes, err := encode("e", []byte(`"hi"`))
	require.NoError(t, err)
	require.JSONEq(t, `"hi"`, string(bytes.Data))

	obj, err := encode("e", map[string]int{"n": 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"n":2}`, string(obj.Data))

	empty, err := encode("kicked", nil)
	require.NoError(t, err)
	require.Nil(t, empty.Data)
}
