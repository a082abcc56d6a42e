package models

import "time"

// Message is one entry of a channel's append-only log.
// The auto-increment ID gives the total order within a channel.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChannelID string    `gorm:"index:idx_channel_msg;not null" json:"channel_id"`
	SenderID  string    `gorm:"index:idx_channel_msg;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Read      bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`

	Sender *UserSummary `gorm:"-" json:"sender,omitempty"`
}
