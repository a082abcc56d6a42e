package chathub_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skillswap/backend/internal/chathub"
	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway serves the hub on a test server; the user id comes from ?user=.
func gateway(t *testing.T, auth chathub.Authorizer) (*chathub.ManagerService, string) {
	t.Helper()
	hub := chathub.NewManagerService(auth, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		chathub.NewWebSocketClient(hub, conn, r.URL.Query().Get("user")).Run()
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, env models.Envelope) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
}

func recv(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestWebSocketClient_Relay(t *testing.T) {
	auth := &MockAuthorizer{}
	auth.On("CanJoin", "alice", "room1").Return(nil)
	auth.On("CanJoin", "bob", "room1").Return(nil)
	auth.On("ResolveMessage", "alice", "room1", uint(7)).
		Return(&models.Message{ID: 7, ChannelID: "room1", SenderID: "alice", Content: "offer: 90"}, nil)

	hub, url := gateway(t, auth)
	alice := dial(t, url, "alice")
	bob := dial(t, url, "bob")

	send(t, alice, models.Envelope{Type: models.EventJoin, RoomID: "room1"})
	send(t, bob, models.Envelope{Type: models.EventJoin, RoomID: "room1"})
	require.Eventually(t, func() bool { return len(hub.Members("room1")) == 2 }, 2*time.Second, 10*time.Millisecond)

	send(t, alice, models.Envelope{Type: models.EventTyping, RoomID: "room1", IsTyping: true})
	got := recv(t, bob)
	assert.Equal(t, models.EventUserTyping, got.Type)
	assert.Equal(t, "alice", got.UserID)
	assert.True(t, got.IsTyping)

	// Bob answers only after alice's event was fanned out, so if alice had been sent her
	// own event it would arrive before bob's.
	send(t, bob, models.Envelope{Type: models.EventTyping, RoomID: "room1", IsTyping: true})
	got = recv(t, alice)
	assert.Equal(t, "bob", got.UserID)

	send(t, alice, models.Envelope{Type: models.EventSendMessage, RoomID: "room1", MessageID: 7})
	got = recv(t, bob)
	assert.Equal(t, models.EventReceiveMessage, got.Type)
	require.NotNil(t, got.Message)
	assert.Equal(t, "offer: 90", got.Message.Content)
	assert.EqualValues(t, 7, got.Message.ID)
}

func TestWebSocketClient_Rejections(t *testing.T) {
	auth := &MockAuthorizer{}
	auth.On("CanJoin", "carol", "room1").Return(errs.Authorization("not a participant of this chat"))
	auth.On("CanJoin", "alice", "room1").Return(nil)
	auth.On("ResolveMessage", "alice", "room1", uint(8)).Return(nil, errs.Authorization("message was sent by another user"))

	_, url := gateway(t, auth)
	carol := dial(t, url, "carol")
	alice := dial(t, url, "alice")

	send(t, carol, models.Envelope{Type: models.EventJoin, RoomID: "room1"})
	got := recv(t, carol)
	assert.Equal(t, models.EventError, got.Type)
	assert.Contains(t, got.Error, "not a participant")

	send(t, carol, models.Envelope{Type: models.EventTyping, RoomID: "room1", IsTyping: true})
	got = recv(t, carol)
	assert.Equal(t, models.EventError, got.Type)
	assert.Contains(t, got.Error, "join the room first")

	send(t, alice, models.Envelope{Type: models.EventJoin, RoomID: "room1"})
	send(t, alice, models.Envelope{Type: models.EventSendMessage, RoomID: "room1", MessageID: 8})
	got = recv(t, alice)
	assert.Equal(t, models.EventError, got.Type)
	assert.Equal(t, "room1", got.RoomID)

	send(t, alice, models.Envelope{Type: "shout", RoomID: "room1"})
	got = recv(t, alice)
	assert.Contains(t, got.Error, "unknown event")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))
	got = recv(t, alice)
	assert.Contains(t, got.Error, "malformed")

	auth.AssertNotCalled(t, "ResolveMessage", "carol", "room1", uint(0))
}

func TestWebSocketClient_DisconnectLeavesRooms(t *testing.T) {
	auth := &MockAuthorizer{}
	auth.On("CanJoin", "alice", "room1").Return(nil)

	hub, url := gateway(t, auth)
	alice := dial(t, url, "alice")
	send(t, alice, models.Envelope{Type: models.EventJoin, RoomID: "room1"})
	require.Eventually(t, func() bool { return len(hub.Members("room1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool { return len(hub.Members("room1")) == 0 }, 2*time.Second, 10*time.Millisecond)
}
