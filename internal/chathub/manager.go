package chathub

import (
	"context"
	"log/slog"

	"skillswap/backend/internal/metrics"
	"skillswap/backend/internal/models"
)

type membership struct {
	client Client
	roomID string
}

type direct struct {
	client Client
	env    models.Envelope
}

// ManagerService is the hub. Its maps are owned by the Run goroutine; everything else
// talks to it through channels.
type ManagerService struct {
	clients map[string]Client
	rooms   map[string]map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	joinCh       chan membership
	leaveCh      chan membership
	directCh     chan direct
	queryCh      chan func()

	Auth   Authorizer
	Broker Broker
	log    *slog.Logger
	done   chan struct{}
}

// NewManagerService Constructor. A nil broker means a single instance.
func NewManagerService(auth Authorizer, broker Broker, logger *slog.Logger) *ManagerService {
	if broker == nil {
		broker = NewLocalBroker(256)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagerService{
		clients:      make(map[string]Client),
		rooms:        make(map[string]map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		joinCh:       make(chan membership),
		leaveCh:      make(chan membership),
		directCh:     make(chan direct, 64),
		queryCh:      make(chan func()),
		Auth:         auth,
		Broker:       broker,
		log:          logger.With("component", "hub"),
		done:         make(chan struct{}),
	}
}

// Run processes hub events until ctx is done, then closes every client.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	events := m.Broker.Events()

	for {
		select {
		case <-ctx.Done():
			for _, c := range m.clients {
				m.remove(c)
			}
			m.log.Info("hub stopped")
			return

		case c := <-m.RegisterCh:
			m.clients[c.GetConnID()] = c
			metrics.WSConnections.Inc()
			m.log.Debug("client registered", "conn_id", c.GetConnID(), "user_id", c.GetUserID())

		case c := <-m.UnregisterCh:
			m.remove(c)

		case j := <-m.joinCh:
			if _, ok := m.clients[j.client.GetConnID()]; !ok {
				continue
			}
			members, ok := m.rooms[j.roomID]
			if !ok {
				members = make(map[string]Client)
				m.rooms[j.roomID] = members
			}
			members[j.client.GetConnID()] = j.client

		case l := <-m.leaveCh:
			m.leave(l.client.GetConnID(), l.roomID)

		case d := <-m.directCh:
			if _, ok := m.clients[d.client.GetConnID()]; ok {
				m.send(d.client, d.env)
			}

		case query := <-m.queryCh:
			query()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.deliver(ev)
		}
	}
}

// deliver hands ev to every local member of the room except the connection it came from.
func (m *ManagerService) deliver(ev models.RoomEvent) {
	for connID, c := range m.rooms[ev.Envelope.RoomID] {
		if connID == ev.Origin {
			continue
		}
		m.send(c, ev.Envelope)
	}
}

// send drops a client whose queue is full rather than stall the hub.
func (m *ManagerService) send(c Client, env models.Envelope) {
	select {
	case c.GetSendChannel() <- env:
	default:
		metrics.DroppedClients.Inc()
		m.log.Warn("dropping slow client", "conn_id", c.GetConnID(), "user_id", c.GetUserID())
		m.remove(c)
	}
}

func (m *ManagerService) remove(c Client) {
	connID := c.GetConnID()
	if _, ok := m.clients[connID]; !ok {
		return
	}
	delete(m.clients, connID)
	for roomID := range m.rooms {
		m.leave(connID, roomID)
	}
	c.Close()
	metrics.WSConnections.Dec()
	m.log.Debug("client unregistered", "conn_id", connID, "user_id", c.GetUserID())
}

func (m *ManagerService) leave(connID, roomID string) {
	members, ok := m.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	}
}

// The helpers below return without effect once the hub has stopped.

func (m *ManagerService) Register(c Client) {
	select {
	case m.RegisterCh <- c:
	case <-m.done:
	}
}

func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Join adds c to a room. Callers check membership with the Authorizer first.
func (m *ManagerService) Join(c Client, roomID string) {
	select {
	case m.joinCh <- membership{client: c, roomID: roomID}:
	case <-m.done:
	}
}

func (m *ManagerService) Leave(c Client, roomID string) {
	select {
	case m.leaveCh <- membership{client: c, roomID: roomID}:
	case <-m.done:
	}
}

// Reply sends env to c alone.
func (m *ManagerService) Reply(c Client, env models.Envelope) {
	select {
	case m.directCh <- direct{client: c, env: env}:
	case <-m.done:
	}
}

// Publish relays an event to the room through the broker. Relays are best effort.
func (m *ManagerService) Publish(ctx context.Context, ev models.RoomEvent) {
	if err := m.Broker.Publish(ctx, ev); err != nil {
		m.log.Warn("publish failed", "room_id", ev.Envelope.RoomID, "type", ev.Envelope.Type, "error", err)
		return
	}
	metrics.RoomEvents.WithLabelValues(ev.Envelope.Type).Inc()
}

// BroadcastRead tells the room that userID has read the other side's messages.
func (m *ManagerService) BroadcastRead(ctx context.Context, roomID, userID string) {
	m.Publish(ctx, models.RoomEvent{Envelope: models.Envelope{
		Type:   models.EventMessagesRead,
		RoomID: roomID,
		UserID: userID,
	}})
}

// Members returns the connection ids in a room, as seen by the hub goroutine.
func (m *ManagerService) Members(roomID string) []string {
	res := make(chan []string, 1)
	query := func() {
		ids := make([]string, 0, len(m.rooms[roomID]))
		for id := range m.rooms[roomID] {
			ids = append(ids, id)
		}
		res <- ids
	}
	select {
	case m.queryCh <- query:
	case <-m.done:
		return nil
	}
	return <-res
}
