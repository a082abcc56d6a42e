// Package auth registers users, verifies their email with a one-time code and issues the
// access tokens every other endpoint trusts.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"skillswap/backend/internal/config"
	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/lifecycle"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/storage"
)

// Mailer delivers verification codes.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogMailer stands in for a real mail gateway in development. The code itself is only
// logged at debug level.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) SendOTP(_ context.Context, email, code string) error {
	m.Log.Info("verification code issued", "email", email)
	m.Log.Debug("verification code", "email", email, "code", code)
	return nil
}

type RegisterInput struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Skills   []string `json:"skills"`
}

type Service struct {
	store  storage.Storage
	tokens *Issuer
	mailer Mailer
	otpTTL time.Duration
	log    *slog.Logger
}

func NewService(store storage.Storage, tokens *Issuer, mailer Mailer, otpTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if mailer == nil {
		mailer = LogMailer{Log: logger}
	}
	return &Service{
		store:  store,
		tokens: tokens,
		mailer: mailer,
		otpTTL: otpTTL,
		log:    logger.With("component", "auth"),
	}
}

func (s *Service) Tokens() *Issuer { return s.tokens }

// Register creates an unverified account and sends it a verification code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, errs.Conflict("this email is already registered")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Skills:       lifecycle.NormalizeSkills(in.Skills),
		Language:     "en",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.sendCode(ctx, email); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// VerifyOTP marks the account verified when code matches the pending one.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	pending, err := s.store.GetOTP(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Validation("verification code expired, request a new one")
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) != pending {
		return errs.Validation("invalid verification code")
	}
	if err := s.store.MarkUserVerified(ctx, user.ID); err != nil {
		return err
	}
	if err := s.store.DeleteOTP(ctx, email); err != nil {
		s.log.Warn("delete code failed", "email", email, "error", err)
	}
	return nil
}

func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return errs.State("email is already verified")
	}
	return s.sendCode(ctx, email)
}

// Login checks the credentials of a verified account and returns an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	invalid := errs.Unauthenticated("invalid credentials")

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return "", nil, invalid
	}
	if err != nil {
		return "", nil, err
	}
	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		s.log.Warn("password check failed", "user_id", user.ID, "error", err)
	}
	if !ok {
		return "", nil, invalid
	}
	if !user.Verified {
		return "", nil, errs.Authorization("email is not verified")
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	s.log.Info("user logged in", "user_id", user.ID)
	return token, user, nil
}

// Authenticate resolves a token to its user id.
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.Parse(token)
}

func (s *Service) sendCode(ctx context.Context, email string) error {
	code, err := GenerateOTP(config.OTPLength)
	if err != nil {
		return err
	}
	if err := s.store.SaveOTP(ctx, email, code, s.otpTTL); err != nil {
		return err
	}
	return s.mailer.SendOTP(ctx, email, code)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errs.Validation("a valid email is required")
	}
	return email, nil
}
