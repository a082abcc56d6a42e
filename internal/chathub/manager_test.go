package chathub_test

import (
	"context"
	"testing"
	"time"

	"skillswap/backend/internal/chathub"
	"skillswap/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*chathub.ManagerService, context.CancelFunc) {
	t.Helper()
	hub := chathub.NewManagerService(&MockAuthorizer{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func joinAll(t *testing.T, hub *chathub.ManagerService, room string, clients ...*MockClient) {
	t.Helper()
	for _, c := range clients {
		hub.Register(c)
		hub.Join(c, room)
	}
	require.Eventually(t, func() bool {
		return len(hub.Members(room)) == len(clients)
	}, time.Second, 10*time.Millisecond)
}

func typing(origin, room, user string) models.RoomEvent {
	return models.RoomEvent{Origin: origin, Envelope: models.Envelope{
		Type: models.EventUserTyping, RoomID: room, UserID: user, IsTyping: true,
	}}
}

func TestManager_DeliverSkipsOrigin(t *testing.T) {
	hub, _ := startHub(t)
	aliceTab1 := newMockClient("alice", "c1", 10)
	aliceTab2 := newMockClient("alice", "c2", 10)
	bob := newMockClient("bob", "c3", 10)
	outsider := newMockClient("carol", "c4", 10)
	joinAll(t, hub, "room1", aliceTab1, aliceTab2, bob)
	hub.Register(outsider)

	hub.Publish(context.Background(), typing("c1", "room1", "alice"))

	for _, c := range []*MockClient{aliceTab2, bob} {
		select {
		case env := <-c.RecvChannel:
			assert.Equal(t, models.EventUserTyping, env.Type)
			assert.Equal(t, "alice", env.UserID)
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the event", c.GetConnID())
		}
	}
	assert.Never(t, func() bool {
		return len(aliceTab1.RecvChannel) > 0 || len(outsider.RecvChannel) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestManager_BroadcastReadReachesEveryone(t *testing.T) {
	hub, _ := startHub(t)
	alice := newMockClient("alice", "c1", 10)
	bob := newMockClient("bob", "c2", 10)
	joinAll(t, hub, "room1", alice, bob)

	hub.BroadcastRead(context.Background(), "room1", "alice")

	for _, c := range []*MockClient{alice, bob} {
		select {
		case env := <-c.RecvChannel:
			assert.Equal(t, models.EventMessagesRead, env.Type)
			assert.Equal(t, "alice", env.UserID)
		case <-time.After(time.Second):
			t.Fatal("messages_read not delivered")
		}
	}
}

func TestManager_LeaveAndUnregister(t *testing.T) {
	hub, _ := startHub(t)
	alice := newMockClient("alice", "c1", 10)
	bob := newMockClient("bob", "c2", 10)
	joinAll(t, hub, "room1", alice, bob)

	hub.Leave(bob, "room1")
	require.Eventually(t, func() bool { return len(hub.Members("room1")) == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(alice)
	require.Eventually(t, func() bool { return len(hub.Members("room1")) == 0 }, time.Second, 10*time.Millisecond)
	select {
	case <-alice.closed:
	case <-time.After(time.Second):
		t.Fatal("unregistered client was not closed")
	}
}

func TestManager_DropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)
	fast := newMockClient("alice", "c1", 10)
	slow := newMockClient("bob", "c2", 1)
	joinAll(t, hub, "room1", fast, slow)

	for i := 0; i < 3; i++ {
		hub.Publish(context.Background(), typing("", "room1", "carol"))
	}

	select {
	case <-slow.closed:
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"c1"}, hub.Members("room1"))
	}, time.Second, 10*time.Millisecond)
	assert.Len(t, fast.RecvChannel, 3)
}

func TestManager_JoinRequiresRegistration(t *testing.T) {
	hub, _ := startHub(t)
	ghost := newMockClient("ghost", "c9", 1)

	hub.Join(ghost, "room1")
	assert.Empty(t, hub.Members("room1"))
}

func TestManager_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	alice := newMockClient("alice", "c1", 10)
	joinAll(t, hub, "room1", alice)

	cancel()
	select {
	case <-alice.closed:
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
	// Calls after shutdown return instead of blocking.
	hub.Register(newMockClient("bob", "c2", 1))
	assert.Nil(t, hub.Members("room1"))
}

func TestLocalBroker_Closed(t *testing.T) {
	b := chathub.NewLocalBroker(0)
	require.NoError(t, b.Close())
	err := b.Publish(context.Background(), typing("", "room1", "alice"))
	assert.ErrorIs(t, err, chathub.ErrBrokerClosed)
}
