package models

// Event types exchanged over the realtime connection.
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventSendMessage = "send_message"
	EventTyping      = "typing"

	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
	EventMessagesRead   = "messages_read"
	EventError          = "error"
)

// Envelope is the JSON frame used in both directions on /ws.
type Envelope struct {
	Type      string   `json:"type"`
	RoomID    string   `json:"room_id"`
	UserID    string   `json:"user_id,omitempty"`
	MessageID uint     `json:"message_id,omitempty"`
	Message   *Message `json:"message,omitempty"`
	IsTyping  bool     `json:"is_typing,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// RoomEvent is an envelope on its way to a room. Origin is the connection that caused it
// and never receives it back.
type RoomEvent struct {
	Origin   string   `json:"origin"`
	Envelope Envelope `json:"envelope"`
}
