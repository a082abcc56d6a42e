package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Storage is everything the services need from the database and Redis.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	MarkUserVerified(ctx context.Context, id string) error
	GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
	ListVerifiedUsersExcept(ctx context.Context, id string) ([]models.User, error)

	// Service requests
	CreateRequest(ctx context.Context, r *models.ServiceRequest) error
	GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	ListRequests(ctx context.Context, ownerID string) ([]models.ServiceRequest, error)
	ChangeRequestStatus(ctx context.Context, c StatusChange) (bool, error)
	DeleteRequest(ctx context.Context, id string) error

	// Chat channels
	EnsureChannel(ctx context.Context, r *models.ServiceRequest) (*models.ChatChannel, error)
	GetChannel(ctx context.Context, id string) (*models.ChatChannel, error)
	GetChannelByRequest(ctx context.Context, requestID string) (*models.ChatChannel, error)
	ListChannelsForUser(ctx context.Context, userID string) ([]models.ChannelSummary, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	GetMessages(ctx context.Context, channelID string, afterID uint) ([]models.Message, error)
	MarkRead(ctx context.Context, channelID, readerID string) (int64, error)

	// Skill exchanges
	CreateExchange(ctx context.Context, e *models.SkillExchange) error
	GetExchange(ctx context.Context, id string) (*models.SkillExchange, error)
	ListExchangesForUser(ctx context.Context, userID string) ([]models.SkillExchange, error)
	UpdateExchangeStatus(ctx context.Context, id string, from, to models.ExchangeStatus, credits int) (bool, error)
	DeleteExchange(ctx context.Context, id string) error

	// One-time passwords (Redis)
	SaveOTP(ctx context.Context, email, code string, ttl time.Duration) error
	GetOTP(ctx context.Context, email string) (string, error)
	DeleteOTP(ctx context.Context, email string) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *slog.Logger

	otps *memoryOTP
}

// NewStorageService Constructor. With a nil rdb the codes are kept in process memory.
func NewStorageService(db *gorm.DB, rdb *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		DB:    db,
		Redis: rdb,
		Log:   logger.With("component", "storage"),
		otps:  newMemoryOTP(),
	}
}

// notFound converts gorm.ErrRecordNotFound into the domain error and logs anything else.
func (s *Service) notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(what)
	}
	s.Log.Error("query failed", "entity", what, "id", id, "error", err)
	return err
}
