package storage

import (
	"context"
	"time"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/lifecycle"
	"skillswap/backend/internal/models"

	"gorm.io/gorm"
)

// StatusChange is a conditional status update: it only applies while the stored status
// equals From (and, when RequireAssignee is set, the stored assignee matches).
type StatusChange struct {
	ID              string
	From            models.RequestStatus
	To              models.RequestStatus
	AssignTo        string
	RequireAssignee string
}

func (s *Service) CreateRequest(ctx context.Context, r *models.ServiceRequest) error {
	return s.DB.WithContext(ctx).Create(r).Error
}

func (s *Service) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var r models.ServiceRequest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, s.notFound(err, "service request", id)
	}
	return &r, nil
}

// ListRequests returns every request, or only ownerID's when it is set, newest first.
func (s *Service) ListRequests(ctx context.Context, ownerID string) ([]models.ServiceRequest, error) {
	var items []models.ServiceRequest
	tx := s.DB.WithContext(ctx).Model(&models.ServiceRequest{})
	if ownerID != "" {
		tx = tx.Where("owner_id = ?", ownerID)
	}
	if err := tx.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ChangeRequestStatus applies c atomically and mirrors the new status onto the request's
// channel, if one exists. It reports false when the condition did not hold, which means a
// concurrent writer got there first.
func (s *Service) ChangeRequestStatus(ctx context.Context, c StatusChange) (bool, error) {
	applied := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes := map[string]interface{}{
			"status":     c.To,
			"updated_at": time.Now().UTC(),
		}
		if c.AssignTo != "" {
			changes["assigned_to"] = c.AssignTo
		}

		q := tx.Model(&models.ServiceRequest{}).Where("id = ? AND status = ?", c.ID, c.From)
		if c.RequireAssignee != "" {
			q = q.Where("assigned_to = ?", c.RequireAssignee)
		}
		res := q.Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		return tx.Model(&models.ChatChannel{}).
			Where("service_request_id = ?", c.ID).
			Update("status", lifecycle.ChannelStatusFor(c.To)).Error
	})
	if err != nil {
		s.Log.Error("status change failed", "request_id", c.ID, "to", c.To, "error", err)
		return false, err
	}
	return applied, nil
}

// DeleteRequest removes the request together with its channel and messages.
func (s *Service) DeleteRequest(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channelIDs []string
		if err := tx.Model(&models.ChatChannel{}).
			Where("service_request_id = ?", id).
			Pluck("id", &channelIDs).Error; err != nil {
			return err
		}
		if len(channelIDs) > 0 {
			if err := tx.Where("channel_id IN ?", channelIDs).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", channelIDs).Delete(&models.ChatChannel{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.ServiceRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("service request")
		}
		return nil
	})
}
