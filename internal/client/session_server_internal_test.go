package client

import (
	"context"
	"testing"
	"time"

	"skillswap/backend/internal/api/apitest"
	"skillswap/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAsBob(t *testing.T) (*apitest.Env, *API, *Connection, *Session) {
	t.Helper()
	env := apitest.New(t)
	_, aliceToken := env.User(t, "alice")
	bob, bobToken := env.User(t, "bob")

	conn, err := NewConnection(env.Server.URL, bobToken, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { conn.Close() })

	s := NewSession(NewAPI(env.Server.URL, bobToken), conn, bob.ID, Options{})
	return env, NewAPI(env.Server.URL, aliceToken), conn, s
}

func newRequest(t *testing.T, owner *API, title string) *models.ServiceRequest {
	t.Helper()
	r, err := owner.CreateRequest(context.Background(), RequestInput{
		Title: title, Description: "A logo", Budget: 50, Deadline: "2099-01-01", Skills: []string{"design"},
	})
	require.NoError(t, err)
	return r
}

func TestResyncAfterOwnSendRefetchesMissedMessages(t *testing.T) {
	ctx := context.Background()
	_, alice, conn, s := openAsBob(t)
	r := newRequest(t, alice, "Logo")
	require.NoError(t, s.Open(ctx, r.ID))
	roomID := s.Channel().ID

	conn.drop(conn.current())
	require.Equal(t, Disconnected, conn.State())

	_, err := alice.SendMessage(ctx, roomID, "missed while offline")
	require.NoError(t, err)

	// The relay fails, so Send reconnects and the room resyncs.
	_, err = s.Send(ctx, "mine")
	require.NoError(t, err)
	assert.Equal(t, Connected, conn.State())

	require.Eventually(t, func() bool { return len(s.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	msgs := s.Messages()
	assert.Equal(t, "missed while offline", msgs[0].Content)
	assert.Equal(t, "mine", msgs[1].Content)
}

func TestOpenTwiceLeavesPreviousRoom(t *testing.T) {
	ctx := context.Background()
	env, alice, conn, s := openAsBob(t)
	first := newRequest(t, alice, "Logo")
	second := newRequest(t, alice, "Banner")

	require.NoError(t, s.Open(ctx, first.ID))
	firstRoom := s.Channel().ID
	require.Eventually(t, func() bool { return len(env.Hub.Members(firstRoom)) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Open(ctx, second.ID))
	secondRoom := s.Channel().ID
	assert.NotEqual(t, firstRoom, secondRoom)
	assert.Equal(t, []string{secondRoom}, conn.Rooms())

	conn.mu.Lock()
	_, stale := conn.subs[firstRoom]
	subs := len(conn.subs)
	conn.mu.Unlock()
	assert.False(t, stale)
	assert.Equal(t, 1, subs)
	require.Eventually(t, func() bool { return len(env.Hub.Members(firstRoom)) == 0 }, 2*time.Second, 10*time.Millisecond)
}
