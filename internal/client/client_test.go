package client_test

import (
	"context"
	"testing"
	"time"

	"skillswap/backend/internal/api/apitest"
	"skillswap/backend/internal/client"
	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type participant struct {
	user    *models.User
	api     *client.API
	conn    *client.Connection
	session *client.Session
}

func join(t *testing.T, env *apitest.Env, name string, opts client.Options) *participant {
	t.Helper()
	user, token := env.User(t, name)
	conn, err := client.NewConnection(env.Server.URL, token, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { conn.Close() })
	require.Equal(t, client.Connected, conn.State())

	api := client.NewAPI(env.Server.URL, token)
	return &participant{
		user:    user,
		api:     api,
		conn:    conn,
		session: client.NewSession(api, conn, user.ID, opts),
	}
}

func waitMembers(t *testing.T, env *apitest.Env, roomID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(env.Hub.Members(roomID)) == n }, waitFor, tick)
}

func contents(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestNegotiationSession(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	opts := client.Options{TypingTTL: 300 * time.Millisecond, IdleAfter: 50 * time.Millisecond}
	alice := join(t, env, "alice", opts)
	bob := join(t, env, "bob", opts)

	r, err := alice.api.CreateRequest(ctx, client.RequestInput{
		Title:       "Logo design",
		Description: "A logo for my bakery",
		Budget:      100,
		Deadline:    time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		Skills:      []string{"design"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, r.Status)
	assert.Nil(t, r.AssignedTo)

	_, _, err = alice.api.Claim(ctx, r.ID)
	assert.ErrorIs(t, err, errs.ErrAuthorization)

	// Bob claims by opening; Alice opens as the owner.
	require.NoError(t, bob.session.Open(ctx, r.ID))
	claimed := bob.session.Request()
	assert.Equal(t, models.RequestStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, bob.user.ID, *claimed.AssignedTo)
	ch := bob.session.Channel()
	require.NotNil(t, ch)
	assert.Equal(t, alice.user.ID, ch.OwnerID)
	assert.Equal(t, bob.user.ID, ch.AssigneeID)
	assert.Empty(t, bob.session.Messages())

	require.NoError(t, alice.session.Open(ctx, r.ID))
	assert.Equal(t, ch.ID, alice.session.Channel().ID)
	waitMembers(t, env, ch.ID, 2)

	hi, err := bob.session.Send(ctx, "Hi, interested")
	require.NoError(t, err)
	assert.Equal(t, bob.user.ID, hi.SenderID)
	assert.False(t, hi.Read)
	assert.Equal(t, []string{"Hi, interested"}, contents(bob.session.Messages()))

	require.Eventually(t, func() bool { return len(alice.session.Messages()) == 1 }, waitFor, tick)
	got := alice.session.Messages()[0]
	assert.Equal(t, hi.ID, got.ID)
	assert.Equal(t, bob.user.ID, got.SenderID)

	n, err := alice.api.MarkRead(ctx, ch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = alice.api.MarkRead(ctx, ch.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Eventually(t, func() bool {
		msgs := bob.session.Messages()
		return len(msgs) == 1 && msgs[0].Read
	}, waitFor, tick, "bob sees the read receipt")

	_, err = alice.session.Send(ctx, "Great, let's discuss budget")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(bob.session.Messages()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"Hi, interested", "Great, let's discuss budget"}, contents(bob.session.Messages()))
	assert.Equal(t, contents(bob.session.Messages()), contents(alice.session.Messages()))

	done, err := bob.api.UpdateStatus(ctx, r.ID, models.RequestStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, done.Status)
	_, err = alice.api.UpdateStatus(ctx, r.ID, models.RequestStatusCompleted)
	assert.ErrorIs(t, err, errs.ErrState)

	alice.session.Close()
	assert.Nil(t, alice.session.Channel())
	assert.Empty(t, alice.session.Messages())
	waitMembers(t, env, ch.ID, 1)
}

func TestTypingIndicator(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	alice := join(t, env, "alice", client.Options{IdleAfter: 100 * time.Millisecond})
	bob := join(t, env, "bob", client.Options{TypingTTL: 200 * time.Millisecond})

	r, err := alice.api.CreateRequest(ctx, client.RequestInput{
		Title: "Logo", Description: "A logo", Budget: 50, Deadline: "2099-01-01", Skills: []string{"design"},
	})
	require.NoError(t, err)
	require.NoError(t, bob.session.Open(ctx, r.ID))
	require.NoError(t, alice.session.Open(ctx, r.ID))
	roomID := alice.session.Channel().ID
	waitMembers(t, env, roomID, 2)

	alice.session.Keystroke()
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{alice.user.ID}, bob.session.Typing())
	}, waitFor, tick)
	assert.Empty(t, alice.session.Typing(), "typing is never echoed to its sender")

	// The idle timer sends typing(false).
	require.Eventually(t, func() bool { return len(bob.session.Typing()) == 0 }, waitFor, tick)

	// Without a typing(false) the indicator expires on its own.
	require.NoError(t, alice.conn.Emit(models.Envelope{Type: models.EventTyping, RoomID: roomID, IsTyping: true}))
	require.Eventually(t, func() bool { return len(bob.session.Typing()) == 1 }, waitFor, tick)
	start := time.Now()
	require.Eventually(t, func() bool { return len(bob.session.Typing()) == 0 }, waitFor, tick)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Empty(t, alice.session.Typing())
}

func TestReconnectResyncs(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	alice := join(t, env, "alice", client.Options{})
	bob := join(t, env, "bob", client.Options{})

	r, err := alice.api.CreateRequest(ctx, client.RequestInput{
		Title: "Logo", Description: "A logo", Budget: 50, Deadline: "2099-01-01", Skills: []string{"design"},
	})
	require.NoError(t, err)
	require.NoError(t, bob.session.Open(ctx, r.ID))
	roomID := bob.session.Channel().ID

	// Stored but never relayed, as if bob's socket was down at the time.
	_, err = alice.api.SendMessage(ctx, roomID, "while you were away")
	require.NoError(t, err)
	assert.Empty(t, bob.session.Messages())

	require.NoError(t, bob.conn.Reconnect(ctx))
	assert.Equal(t, client.Connected, bob.conn.State())
	assert.Contains(t, bob.conn.Rooms(), roomID)
	waitMembers(t, env, roomID, 1)
	require.Eventually(t, func() bool { return len(bob.session.Messages()) == 1 }, waitFor, tick)
	assert.Equal(t, "while you were away", bob.session.Messages()[0].Content)
}

func TestAssigneeReopensCompletedRequest(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	alice := join(t, env, "alice", client.Options{})
	bob := join(t, env, "bob", client.Options{})

	r, err := alice.api.CreateRequest(ctx, client.RequestInput{
		Title: "Logo", Description: "A logo", Budget: 50, Deadline: "2099-01-01", Skills: []string{"design"},
	})
	require.NoError(t, err)
	require.NoError(t, bob.session.Open(ctx, r.ID))
	_, err = bob.session.Send(ctx, "Delivered the files")
	require.NoError(t, err)
	_, err = bob.api.UpdateStatus(ctx, r.ID, models.RequestStatusCompleted)
	require.NoError(t, err)
	bob.session.Close()

	again := client.NewSession(bob.api, bob.conn, bob.user.ID, client.Options{})
	require.NoError(t, again.Open(ctx, r.ID))
	assert.Equal(t, models.RequestStatusCompleted, again.Request().Status)
	assert.Equal(t, []string{"Delivered the files"}, contents(again.Messages()))

	// Someone else still cannot read it.
	carol := join(t, env, "carol", client.Options{})
	assert.ErrorIs(t, carol.session.Open(ctx, r.ID), errs.ErrAuthorization)
}

func TestAPIErrors(t *testing.T) {
	ctx := context.Background()
	env := apitest.New(t)
	_, token := env.User(t, "alice")

	_, err := client.NewAPI(env.Server.URL, "").ListRequests(ctx, false)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	api := client.NewAPI(env.Server.URL, token)
	_, err = api.GetRequest(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = api.CreateRequest(ctx, client.RequestInput{Title: "x"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = client.NewAPI(env.Server.URL, "").Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestConnectionWithoutServer(t *testing.T) {
	conn, err := client.NewConnection("http://127.0.0.1:1", "t", nil)
	require.NoError(t, err)
	assert.Error(t, conn.Connect(context.Background()))
	assert.Equal(t, client.Disconnected, conn.State())

	assert.ErrorIs(t, conn.Emit(models.Envelope{Type: models.EventTyping, RoomID: "r"}), client.ErrNotConnected)
	require.NoError(t, conn.Join("r"), "joining while offline is deferred")
	assert.Equal(t, []string{"r"}, conn.Rooms())
	require.NoError(t, conn.Leave("r"))
	assert.Empty(t, conn.Rooms())
}
