package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "open"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// ServiceRequest is a unit of work posted by its owner and claimed by at most one other user.
// AssignedTo stays nil while the request is open.
type ServiceRequest struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Budget      float64        `gorm:"not null" json:"budget"`
	Deadline    time.Time      `gorm:"not null" json:"deadline"`
	Skills      pq.StringArray `gorm:"type:text[];not null" json:"skills"`
	Status      RequestStatus  `gorm:"type:varchar(32);index;not null" json:"status"`
	OwnerID     string         `gorm:"index;not null" json:"owner_id"`
	AssignedTo  *string        `gorm:"index" json:"assigned_to"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Owner    *UserSummary `gorm:"-" json:"owner,omitempty"`
	Assignee *UserSummary `gorm:"-" json:"assignee,omitempty"`
}

func (r *ServiceRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// IsAssignee reports whether userID currently holds the request.
func (r *ServiceRequest) IsAssignee(userID string) bool {
	return r.AssignedTo != nil && *r.AssignedTo == userID
}
