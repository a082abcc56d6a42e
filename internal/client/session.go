package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"skillswap/backend/internal/config"
	"skillswap/backend/internal/models"
)

// Options tunes a Session. Zero values take the defaults from config.
type Options struct {
	// TypingTTL is how long a remote typing indicator lives without a refresh.
	TypingTTL time.Duration
	// IdleAfter is the keystroke pause after which typing(false) is sent.
	IdleAfter time.Duration
	// OnChange is called after the message list or typing set changes.
	OnChange func()
	Logger   *slog.Logger
}

// Session drives one negotiation chat for the signed-in user. The message list is a cache
// of the server log: it only grows from REST responses and from relayed messages, merged
// by id.
type Session struct {
	api    *API
	conn   *Connection
	userID string
	opts   Options
	log    *slog.Logger

	mu          sync.Mutex
	request     *models.ServiceRequest
	channel     *models.ChatChannel
	messages    []models.Message
	synced      uint // every message up to this id has been fetched from the server
	typing      map[string]*time.Timer
	typingSent  bool
	idle        *time.Timer
	unsubscribe func()
}

func NewSession(api *API, conn *Connection, userID string, opts Options) *Session {
	if opts.TypingTTL <= 0 {
		opts.TypingTTL = config.TypingTTL
	}
	if opts.IdleAfter <= 0 {
		opts.IdleAfter = config.TypingIdleAfter
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		api:    api,
		conn:   conn,
		userID: userID,
		opts:   opts,
		log:    opts.Logger.With("component", "session", "user_id", userID),
		typing: make(map[string]*time.Timer),
	}
}

// Open starts negotiating on requestID: claim it if it is open and the caller is neither
// owner nor assignee, fetch or create its channel, join the room, load the history and
// mark it read. A session that is already open is closed first.
func (s *Session) Open(ctx context.Context, requestID string) error {
	if s.Channel() != nil {
		s.Close()
	}
	r, err := s.api.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if r.OwnerID != s.userID && !r.IsAssignee(s.userID) && r.Status == models.RequestStatusOpen {
		if r, _, err = s.api.Claim(ctx, requestID); err != nil {
			return err
		}
	}

	view, err := s.api.GetOrCreateChat(ctx, requestID)
	if err != nil {
		return err
	}
	ch := view.ChatChannel

	unsubscribe := s.conn.Subscribe(ch.ID, s.handle, s.resync)
	if err := s.conn.Join(ch.ID); err != nil {
		s.log.Warn("join failed, live updates paused", "room_id", ch.ID, "error", err)
	}

	history, err := s.api.Messages(ctx, ch.ID, 0)
	if err != nil {
		unsubscribe()
		s.conn.Leave(ch.ID)
		return err
	}

	s.mu.Lock()
	s.request = r
	s.channel = &ch
	s.unsubscribe = unsubscribe
	s.messages = nil
	s.synced = 0
	s.mergeLocked(history...)
	s.advanceLocked(history)
	s.mu.Unlock()
	s.changed()

	if _, err := s.api.MarkRead(ctx, ch.ID); err != nil {
		return err
	}
	return nil
}

// Send stores content and then tells the room. Only the store call can fail; a failed
// relay reconnects and resyncs instead.
func (s *Session) Send(ctx context.Context, content string) (*models.Message, error) {
	roomID := s.roomID()
	if roomID == "" {
		return nil, ErrNotConnected
	}
	msg, err := s.api.SendMessage(ctx, roomID, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.mergeLocked(*msg)
	s.stopTypingLocked()
	s.mu.Unlock()
	s.changed()

	relay := models.Envelope{Type: models.EventSendMessage, RoomID: roomID, MessageID: msg.ID}
	if err := s.conn.Emit(relay); err != nil {
		s.log.Warn("relay failed, reconnecting", "room_id", roomID, "error", err)
		if err := s.conn.Reconnect(ctx); err != nil {
			s.log.Warn("reconnect failed", "error", err)
		}
	}
	return msg, nil
}

// Keystroke marks the user as typing and restarts the idle timer that clears it.
func (s *Session) Keystroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return
	}
	if !s.typingSent {
		s.typingSent = true
		s.emitTyping(s.channel.ID, true)
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idle = time.AfterFunc(s.opts.IdleAfter, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopTypingLocked()
	})
}

// Close leaves the room and drops the cached state.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopTypingLocked()
	for id, t := range s.typing {
		t.Stop()
		delete(s.typing, id)
	}
	var roomID string
	if s.channel != nil {
		roomID = s.channel.ID
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.channel = nil
	s.request = nil
	s.messages = nil
	s.synced = 0
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if roomID != "" {
		if err := s.conn.Leave(roomID); err != nil {
			s.log.Debug("leave failed", "room_id", roomID, "error", err)
		}
	}
}

func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Typing lists the other users currently shown as typing.
func (s *Session) Typing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.typing))
	for id := range s.typing {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Session) Request() *models.ServiceRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

func (s *Session) Channel() *models.ChatChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *Session) handle(env models.Envelope) {
	s.mu.Lock()
	if s.channel == nil || env.RoomID != s.channel.ID {
		s.mu.Unlock()
		return
	}
	switch env.Type {
	case models.EventReceiveMessage:
		if env.Message != nil {
			s.mergeLocked(*env.Message)
			s.clearTypingLocked(env.Message.SenderID)
		}
	case models.EventUserTyping:
		if env.UserID == s.userID {
			break
		}
		if env.IsTyping {
			s.showTypingLocked(env.UserID)
		} else {
			s.clearTypingLocked(env.UserID)
		}
	case models.EventMessagesRead:
		if env.UserID != s.userID {
			for i := range s.messages {
				if s.messages[i].SenderID == s.userID {
					s.messages[i].Read = true
				}
			}
		}
	case models.EventError:
		s.log.Warn("gateway rejected event", "room_id", env.RoomID, "error", env.Error)
	}
	s.mu.Unlock()
	s.changed()
}

// resync fetches whatever was appended after the synced cursor. Messages merged from
// Send or from the relay never move the cursor, so a gap left by a dropped socket is
// always refetched.
func (s *Session) resync() {
	roomID, last := s.cursor()
	if roomID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		missed, err := s.api.Messages(ctx, roomID, last)
		if err != nil {
			s.log.Warn("resync failed", "room_id", roomID, "error", err)
			return
		}
		s.mu.Lock()
		if s.channel != nil && s.channel.ID == roomID {
			s.mergeLocked(missed...)
			s.advanceLocked(missed)
		}
		s.mu.Unlock()
		s.changed()
	}()
}

func (s *Session) cursor() (string, uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return "", 0
	}
	return s.channel.ID, s.synced
}

func (s *Session) advanceLocked(fetched []models.Message) {
	for _, m := range fetched {
		if m.ID > s.synced {
			s.synced = m.ID
		}
	}
}

func (s *Session) roomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return ""
	}
	return s.channel.ID
}

// mergeLocked inserts messages by id, replacing a cached copy with the newer one.
func (s *Session) mergeLocked(msgs ...models.Message) {
	for _, m := range msgs {
		i := sort.Search(len(s.messages), func(i int) bool { return s.messages[i].ID >= m.ID })
		if i < len(s.messages) && s.messages[i].ID == m.ID {
			s.messages[i] = m
			continue
		}
		s.messages = append(s.messages, models.Message{})
		copy(s.messages[i+1:], s.messages[i:])
		s.messages[i] = m
	}
}

func (s *Session) showTypingLocked(userID string) {
	if t, ok := s.typing[userID]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.opts.TypingTTL, func() {
		s.mu.Lock()
		expired := s.typing[userID] == t
		if expired {
			delete(s.typing, userID)
		}
		s.mu.Unlock()
		if expired {
			s.changed()
		}
	})
	s.typing[userID] = t
}

func (s *Session) clearTypingLocked(userID string) {
	if t, ok := s.typing[userID]; ok {
		t.Stop()
		delete(s.typing, userID)
	}
}

func (s *Session) stopTypingLocked() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if s.typingSent {
		s.typingSent = false
		if s.channel != nil {
			s.emitTyping(s.channel.ID, false)
		}
	}
}

// emitTyping is best effort; typing state is never worth a reconnect.
func (s *Session) emitTyping(roomID string, typing bool) {
	if err := s.conn.Emit(models.Envelope{Type: models.EventTyping, RoomID: roomID, IsTyping: typing}); err != nil {
		s.log.Debug("typing not sent", "room_id", roomID, "error", err)
	}
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange()
	}
}
