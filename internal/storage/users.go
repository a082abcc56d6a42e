package storage

import (
	"context"
	"strings"

	"skillswap/backend/internal/models"
)

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return s.DB.WithContext(ctx).Create(user).Error
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, s.notFound(err, "user", id)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, s.notFound(err, "user", email)
	}
	return &user, nil
}

func (s *Service) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, s.notFound(err, "user", "")
	}
	return &user, nil
}

// UpdateUser saves the editable profile fields.
func (s *Service) UpdateUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Model(user).
		Select("name", "bio", "location", "skills", "telegram_chat_id", "language").
		Updates(user).Error
}

func (s *Service) MarkUserVerified(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

// GetUserSummaries resolves ids to public user views. Unknown ids are simply absent.
func (s *Service) GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.DB.WithContext(ctx).
		Select("id", "name", "email").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary()
	}
	return out, nil
}

// ListVerifiedUsersExcept is the candidate list for skill exchanges.
func (s *Service) ListVerifiedUsersExcept(ctx context.Context, id string) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).
		Where("verified = ? AND id <> ?", true, id).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
