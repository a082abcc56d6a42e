package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"skillswap/backend/internal/models"

	"github.com/gorilla/websocket"
)

// State is the lifecycle of a Connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var ErrNotConnected = errors.New("realtime connection is not open")

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

type subscription struct {
	onEvent  func(models.Envelope)
	onResync func()
}

// Connection is the one realtime link of a client process. Construct it once and share it
// between sessions. It remembers joined rooms and re-joins them on Connect; the server
// keeps nothing for a dropped connection, so each room's resync callback runs after a
// reconnect to refetch what was missed.
type Connection struct {
	url    string
	token  string
	dialer websocket.Dialer
	log    *slog.Logger

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	connected bool // at least once
	rooms     map[string]struct{}
	subs      map[string]map[int]subscription
	nextSub   int

	writeMu sync.Mutex
}

// NewConnection takes the server base URL (http or https) and a bearer token.
func NewConnection(baseURL, token string, logger *slog.Logger) (*Connection, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		url:    u.String(),
		token:  token,
		dialer: websocket.Dialer{HandshakeTimeout: dialTimeout},
		log:    logger.With("component", "realtime"),
		rooms:  make(map[string]struct{}),
		subs:   make(map[string]map[int]subscription),
	}, nil
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the gateway if not already connected and re-joins remembered rooms.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		c.setState(Disconnected)
		return fmt.Errorf("websocket connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = Connected
	reconnect := c.connected
	c.connected = true
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	c.mu.Unlock()

	go c.readLoop(conn)

	for _, id := range rooms {
		if err := c.Emit(models.Envelope{Type: models.EventJoin, RoomID: id}); err != nil {
			return err
		}
	}
	if reconnect {
		c.log.Info("reconnected", "rooms", len(rooms))
		for _, id := range rooms {
			for _, s := range c.subscribers(id) {
				if s.onResync != nil {
					s.onResync()
				}
			}
		}
	}
	return nil
}

// Reconnect drops the current socket and dials again.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.drop(c.current())
	return c.Connect(ctx)
}

// Close disconnects and forgets every room.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.rooms = make(map[string]struct{})
	c.mu.Unlock()
	c.drop(c.current())
	return nil
}

// Join remembers roomID and asks the gateway to add this connection to it. A room joined
// while disconnected is joined on the next Connect.
func (c *Connection) Join(roomID string) error {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
	err := c.Emit(models.Envelope{Type: models.EventJoin, RoomID: roomID})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

func (c *Connection) Leave(roomID string) error {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
	err := c.Emit(models.Envelope{Type: models.EventLeave, RoomID: roomID})
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Rooms lists the remembered rooms.
func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}

// Subscribe routes the room's server events to onEvent and calls onResync after each
// reconnect. Callbacks run on the read goroutine and must not block.
func (c *Connection) Subscribe(roomID string, onEvent func(models.Envelope), onResync func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	if c.subs[roomID] == nil {
		c.subs[roomID] = make(map[int]subscription)
	}
	c.subs[roomID][id] = subscription{onEvent: onEvent, onResync: onResync}
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[roomID], id)
		if len(c.subs[roomID]) == 0 {
			delete(c.subs, roomID)
		}
	}
}

// Emit writes one event. A failed write drops the connection.
func (c *Connection) Emit(env models.Envelope) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(env)
	c.writeMu.Unlock()
	if err != nil {
		c.drop(conn)
		return fmt.Errorf("emit %s: %w", env.Type, err)
	}
	return nil
}

func (c *Connection) readLoop(conn *websocket.Conn) {
	defer c.drop(conn)
	for {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("connection lost", "error", err)
			}
			return
		}
		if env.Type == models.EventError {
			c.log.Debug("gateway error", "room_id", env.RoomID, "error", env.Error)
		}
		for _, s := range c.subscribers(env.RoomID) {
			if s.onEvent != nil {
				s.onEvent(env)
			}
		}
	}
}

func (c *Connection) subscribers(roomID string) []subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]subscription, 0, len(c.subs[roomID]))
	for _, s := range c.subs[roomID] {
		out = append(out, s)
	}
	return out
}

func (c *Connection) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// drop closes conn and, if it is still the active socket, marks the connection down.
func (c *Connection) drop(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.state = Disconnected
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
