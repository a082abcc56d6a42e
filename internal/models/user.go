package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User is a marketplace account. Only verified users can sign in.
type User struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"not null" json:"name"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	Verified       bool           `gorm:"not null;default:false" json:"verified"`
	Bio            string         `json:"bio,omitempty"`
	Location       string         `json:"location,omitempty"`
	Skills         pq.StringArray `gorm:"type:text[]" json:"skills"`
	TelegramChatID int64          `json:"telegram_chat_id,omitempty"`
	Language       string         `gorm:"not null;default:'en'" json:"language"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// UserSummary is the public view of a user embedded in requests and channels.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
