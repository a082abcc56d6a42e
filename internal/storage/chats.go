package storage

import (
	"context"
	"time"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureChannel returns the channel of r, creating it on first use. Concurrent callers
// converge on the same row through the unique service_request_id index.
func (s *Service) EnsureChannel(ctx context.Context, r *models.ServiceRequest) (*models.ChatChannel, error) {
	if r.AssignedTo == nil {
		return nil, errs.State("request %s has no assignee yet", r.ID)
	}

	now := time.Now().UTC()
	ch := models.ChatChannel{
		ServiceRequestID: r.ID,
		OwnerID:          r.OwnerID,
		AssigneeID:       *r.AssignedTo,
		Status:           models.ChannelStatusActive,
		LastActivity:     now,
		CreatedAt:        now,
	}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "service_request_id"}}, DoNothing: true}).
		Create(&ch).Error
	if err != nil {
		s.Log.Error("create channel failed", "request_id", r.ID, "error", err)
		return nil, err
	}
	return s.GetChannelByRequest(ctx, r.ID)
}

func (s *Service) GetChannel(ctx context.Context, id string) (*models.ChatChannel, error) {
	var ch models.ChatChannel
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&ch).Error; err != nil {
		return nil, s.notFound(err, "chat", id)
	}
	return &ch, nil
}

func (s *Service) GetChannelByRequest(ctx context.Context, requestID string) (*models.ChatChannel, error) {
	var ch models.ChatChannel
	if err := s.DB.WithContext(ctx).Where("service_request_id = ?", requestID).First(&ch).Error; err != nil {
		return nil, s.notFound(err, "chat", requestID)
	}
	return &ch, nil
}

// ListChannelsForUser returns the user's channels by last activity, newest first,
// with the request title/status and the number of unread messages sent by the other side.
func (s *Service) ListChannelsForUser(ctx context.Context, userID string) ([]models.ChannelSummary, error) {
	db := s.DB.WithContext(ctx)

	var channels []models.ChatChannel
	if err := db.Where("owner_id = ? OR assignee_id = ?", userID, userID).
		Order("last_activity DESC").
		Find(&channels).Error; err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return []models.ChannelSummary{}, nil
	}

	channelIDs := make([]string, 0, len(channels))
	requestIDs := make([]string, 0, len(channels))
	for _, ch := range channels {
		channelIDs = append(channelIDs, ch.ID)
		requestIDs = append(requestIDs, ch.ServiceRequestID)
	}

	var requests []models.ServiceRequest
	if err := db.Select("id", "title", "status").Where("id IN ?", requestIDs).Find(&requests).Error; err != nil {
		return nil, err
	}
	byRequest := make(map[string]models.ServiceRequest, len(requests))
	for _, r := range requests {
		byRequest[r.ID] = r
	}

	var unread []struct {
		ChannelID string
		N         int64
	}
	if err := db.Model(&models.Message{}).
		Select("channel_id, count(*) AS n").
		Where("channel_id IN ? AND sender_id <> ? AND is_read = ?", channelIDs, userID, false).
		Group("channel_id").
		Scan(&unread).Error; err != nil {
		return nil, err
	}
	unreadBy := make(map[string]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.ChannelID] = u.N
	}

	out := make([]models.ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		r := byRequest[ch.ServiceRequestID]
		out = append(out, models.ChannelSummary{
			ChatChannel:   ch,
			RequestTitle:  r.Title,
			RequestStatus: r.Status,
			UnreadCount:   unreadBy[ch.ID],
		})
	}
	return out, nil
}

// AppendMessage stores msg at the end of its channel's log and bumps last_activity.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg.Read = false
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(msg).Error; err != nil {
			s.Log.Error("append message failed", "channel_id", msg.ChannelID, "error", err)
			return err
		}
		return tx.Model(&models.ChatChannel{}).
			Where("id = ?", msg.ChannelID).
			Update("last_activity", msg.CreatedAt).Error
	})
}

func (s *Service) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var m models.Message
	if err := s.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, s.notFound(err, "message", "")
	}
	return &m, nil
}

// GetMessages returns the channel log in append order, starting after afterID.
func (s *Service) GetMessages(ctx context.Context, channelID string, afterID uint) ([]models.Message, error) {
	messages := []models.Message{}
	tx := s.DB.WithContext(ctx).Where("channel_id = ?", channelID)
	if afterID > 0 {
		tx = tx.Where("id > ?", afterID)
	}
	if err := tx.Order("id ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flags every message not sent by readerID as read and returns how many changed.
func (s *Service) MarkRead(ctx context.Context, channelID, readerID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("channel_id = ? AND sender_id <> ? AND is_read = ?", channelID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
