package chathub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"skillswap/backend/internal/config"
	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	authTimeout    = 5 * time.Second
)

// WebSocketClient implements Client over a gorilla connection.
type WebSocketClient struct {
	UserID string
	ConnID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.Envelope

	// rooms is only touched by readPump.
	rooms     map[string]struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID string) *WebSocketClient {
	connID := uuid.New().String()
	return &WebSocketClient{
		UserID: userID,
		ConnID: connID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.Envelope, config.ClientSendQueue),
		rooms:  make(map[string]struct{}),
		log:    hub.log.With("conn_id", connID, "user_id", userID),
	}
}

func (c *WebSocketClient) GetUserID() string                      { return c.UserID }
func (c *WebSocketClient) GetConnID() string                      { return c.ConnID }
func (c *WebSocketClient) GetSendChannel() chan<- models.Envelope { return c.Send }

// Run registers the client and starts its pumps.
func (c *WebSocketClient) Run() {
	c.Hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which makes writePump close the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("read failed", "error", err)
			}
			return
		}

		var in models.Envelope
		if err := json.Unmarshal(data, &in); err != nil {
			c.fail("", errs.Validation("malformed event"))
			continue
		}
		c.handle(in)
	}
}

// handle applies one client event. Identity always comes from the connection.
func (c *WebSocketClient) handle(in models.Envelope) {
	if in.RoomID == "" {
		c.fail("", errs.Validation("room_id is required"))
		return
	}

	switch in.Type {
	case models.EventJoin:
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		if err := c.Hub.Auth.CanJoin(ctx, c.UserID, in.RoomID); err != nil {
			c.fail(in.RoomID, err)
			return
		}
		c.rooms[in.RoomID] = struct{}{}
		c.Hub.Join(c, in.RoomID)

	case models.EventLeave:
		delete(c.rooms, in.RoomID)
		c.Hub.Leave(c, in.RoomID)

	case models.EventSendMessage:
		if !c.joined(in.RoomID) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		msg, err := c.Hub.Auth.ResolveMessage(ctx, c.UserID, in.RoomID, in.MessageID)
		if err != nil {
			c.fail(in.RoomID, err)
			return
		}
		c.Hub.Publish(ctx, models.RoomEvent{Origin: c.ConnID, Envelope: models.Envelope{
			Type:    models.EventReceiveMessage,
			RoomID:  in.RoomID,
			UserID:  c.UserID,
			Message: msg,
		}})

	case models.EventTyping:
		if !c.joined(in.RoomID) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
		defer cancel()
		c.Hub.Publish(ctx, models.RoomEvent{Origin: c.ConnID, Envelope: models.Envelope{
			Type:     models.EventUserTyping,
			RoomID:   in.RoomID,
			UserID:   c.UserID,
			IsTyping: in.IsTyping,
		}})

	default:
		c.fail(in.RoomID, errs.Validation("unknown event %q", in.Type))
	}
}

func (c *WebSocketClient) joined(roomID string) bool {
	if _, ok := c.rooms[roomID]; ok {
		return true
	}
	c.fail(roomID, errs.State("join the room first"))
	return false
}

// fail answers the client with an error event. Internal errors are not echoed.
func (c *WebSocketClient) fail(roomID string, err error) {
	text := err.Error()
	if errs.HTTPStatus(err) >= 500 {
		c.log.Error("event failed", "room_id", roomID, "error", err)
		text = "internal error"
	}
	c.Hub.Reply(c, models.Envelope{Type: models.EventError, RoomID: roomID, Error: text})
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(env); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
