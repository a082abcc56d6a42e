// Package exchange handles direct skill-for-skill proposals between two users.
package exchange

import (
	"context"
	"log/slog"
	"strings"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/storage"

	"github.com/lib/pq"
)

// Partner is the public view of a user who can be proposed an exchange.
type Partner struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Skills   pq.StringArray `json:"skills"`
	Location string         `json:"location"`
	Bio      string         `json:"bio"`
}

type Proposal struct {
	PartnerID    string `json:"partner_id"`
	OfferedSkill string `json:"offered_skill"`
	WantedSkill  string `json:"wanted_skill"`
}

type Service struct {
	store storage.Storage
	log   *slog.Logger
}

func NewService(store storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, log: logger.With("component", "exchange")}
}

// Matches lists every other verified user.
func (s *Service) Matches(ctx context.Context, userID string) ([]Partner, error) {
	users, err := s.store.ListVerifiedUsersExcept(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Partner, 0, len(users))
	for _, u := range users {
		out = append(out, Partner{ID: u.ID, Name: u.Name, Skills: u.Skills, Location: u.Location, Bio: u.Bio})
	}
	return out, nil
}

func (s *Service) Propose(ctx context.Context, requesterID string, p Proposal) (*models.SkillExchange, error) {
	offered := strings.TrimSpace(p.OfferedSkill)
	wanted := strings.TrimSpace(p.WantedSkill)
	if offered == "" || wanted == "" {
		return nil, errs.Validation("offered_skill and wanted_skill are required")
	}
	if p.PartnerID == "" || p.PartnerID == requesterID {
		return nil, errs.Validation("choose another user as partner")
	}
	if _, err := s.store.GetUserByID(ctx, p.PartnerID); err != nil {
		return nil, err
	}

	e := &models.SkillExchange{
		RequesterID:  requesterID,
		PartnerID:    p.PartnerID,
		OfferedSkill: offered,
		WantedSkill:  wanted,
		Status:       models.ExchangeStatusPending,
	}
	if err := s.store.CreateExchange(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("exchange proposed", "exchange_id", e.ID, "requester_id", requesterID, "partner_id", p.PartnerID)
	return e, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.SkillExchange, error) {
	return s.store.ListExchangesForUser(ctx, userID)
}

// UpdateStatus: the partner accepts or rejects a pending proposal; either side completes
// an accepted one.
func (s *Service) UpdateStatus(ctx context.Context, id, actorID string, to models.ExchangeStatus) (*models.SkillExchange, error) {
	e, err := s.participant(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	var from models.ExchangeStatus
	switch to {
	case models.ExchangeStatusAccepted, models.ExchangeStatusRejected:
		if actorID != e.PartnerID {
			return nil, errs.Authorization("only the partner can answer a proposal")
		}
		from = models.ExchangeStatusPending
	case models.ExchangeStatusCompleted:
		from = models.ExchangeStatusAccepted
	default:
		return nil, errs.Validation("cannot move an exchange to status %q", to)
	}
	if e.Status != from {
		return nil, errs.State("exchange is %s", e.Status)
	}

	ok, err := s.store.UpdateExchangeStatus(ctx, id, from, to, e.Credits)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Conflict("exchange %s was changed concurrently", id)
	}
	return s.store.GetExchange(ctx, id)
}

// Delete withdraws a proposal that is not under way.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	e, err := s.participant(ctx, id, actorID)
	if err != nil {
		return err
	}
	if e.Status == models.ExchangeStatusAccepted {
		return errs.State("cannot delete an accepted exchange")
	}
	return s.store.DeleteExchange(ctx, id)
}

func (s *Service) participant(ctx context.Context, id, userID string) (*models.SkillExchange, error) {
	e, err := s.store.GetExchange(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != e.RequesterID && userID != e.PartnerID {
		return nil, errs.Authorization("not a party to this exchange")
	}
	return e, nil
}
