package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "pending"
	ExchangeStatusAccepted  ExchangeStatus = "accepted"
	ExchangeStatusRejected  ExchangeStatus = "rejected"
	ExchangeStatusCompleted ExchangeStatus = "completed"
)

// SkillExchange is a proposal to trade one skill for another between two users.
type SkillExchange struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	RequesterID  string         `gorm:"index;not null" json:"requester_id"`
	PartnerID    string         `gorm:"index;not null" json:"partner_id"`
	OfferedSkill string         `gorm:"not null" json:"offered_skill"`
	WantedSkill  string         `gorm:"not null" json:"wanted_skill"`
	Status       ExchangeStatus `gorm:"type:varchar(32);not null" json:"status"`
	Credits      int            `gorm:"not null;default:0" json:"credits"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (e *SkillExchange) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return
}
