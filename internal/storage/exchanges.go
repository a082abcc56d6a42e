package storage

import (
	"context"
	"time"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"
)

func (s *Service) CreateExchange(ctx context.Context, e *models.SkillExchange) error {
	return s.DB.WithContext(ctx).Create(e).Error
}

func (s *Service) GetExchange(ctx context.Context, id string) (*models.SkillExchange, error) {
	var e models.SkillExchange
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, s.notFound(err, "skill exchange", id)
	}
	return &e, nil
}

func (s *Service) ListExchangesForUser(ctx context.Context, userID string) ([]models.SkillExchange, error) {
	items := []models.SkillExchange{}
	if err := s.DB.WithContext(ctx).
		Where("requester_id = ? OR partner_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateExchangeStatus moves an exchange from -> to only if it is still in from.
func (s *Service) UpdateExchangeStatus(ctx context.Context, id string, from, to models.ExchangeStatus, credits int) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.SkillExchange{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"credits":    credits,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Service) DeleteExchange(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.SkillExchange{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("skill exchange")
	}
	return nil
}
