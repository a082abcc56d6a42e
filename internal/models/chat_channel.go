package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChannelStatus string

const (
	ChannelStatusActive    ChannelStatus = "active"
	ChannelStatusCompleted ChannelStatus = "completed"
	ChannelStatusCancelled ChannelStatus = "cancelled"
)

// ChatChannel is the negotiation log of exactly one service request.
// Its two participants are fixed when the channel is created.
type ChatChannel struct {
	ID               string        `gorm:"primaryKey" json:"id"`
	ServiceRequestID string        `gorm:"uniqueIndex;not null" json:"service_request_id"`
	OwnerID          string        `gorm:"index;not null" json:"owner_id"`
	AssigneeID       string        `gorm:"index;not null" json:"assignee_id"`
	Status           ChannelStatus `gorm:"type:varchar(32);not null" json:"status"`
	LastActivity     time.Time     `gorm:"index;not null" json:"last_activity"`
	CreatedAt        time.Time     `json:"created_at"`
}

func (c *ChatChannel) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

func (c *ChatChannel) ParticipantIDs() []string {
	return []string{c.OwnerID, c.AssigneeID}
}

func (c *ChatChannel) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.OwnerID || userID == c.AssigneeID)
}

// ChannelView is a channel with its history and resolved participants.
type ChannelView struct {
	ChatChannel
	Participants []UserSummary `json:"participants"`
	Messages     []Message     `json:"messages"`
}

// ChannelSummary is one row of a user's chat list.
type ChannelSummary struct {
	ChatChannel
	RequestTitle  string        `json:"request_title"`
	RequestStatus RequestStatus `json:"request_status"`
	Participants  []UserSummary `json:"participants"`
	UnreadCount   int64         `json:"unread_count"`
}
