// Package negotiation runs the service request lifecycle and the chat channel that goes
// with each claimed request. Every operation takes the acting user's id, which callers
// must take from the verified token.
package negotiation

import (
	"context"
	"log/slog"
	"time"

	"skillswap/backend/internal/models"
	"skillswap/backend/internal/storage"
)

// Notifier is told about events the other party may want to hear about outside the app.
// Implementations must not block the caller.
type Notifier interface {
	RequestClaimed(ctx context.Context, r *models.ServiceRequest)
	RequestCompleted(ctx context.Context, r *models.ServiceRequest)
	MessageSent(ctx context.Context, ch *models.ChatChannel, msg *models.Message)
}

type nopNotifier struct{}

func (nopNotifier) RequestClaimed(context.Context, *models.ServiceRequest) {}
func (nopNotifier) RequestCompleted(context.Context, *models.ServiceRequest) {}
func (nopNotifier) MessageSent(context.Context, *models.ChatChannel, *models.Message) {}

type Service struct {
	store  storage.Storage
	notify Notifier
	log    *slog.Logger
	now    func() time.Time
}

// NewService Constructor. notifier may be nil.
func NewService(store storage.Storage, notifier Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		notify: notifier,
		log:    logger.With("component", "negotiation"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Result is what a lifecycle call returns. Channel is set after a claim once the channel
// exists.
type Result struct {
	Request *models.ServiceRequest `json:"request"`
	Channel *models.ChatChannel    `json:"chat,omitempty"`
}

// summaries resolves user ids, tolerating unknown ones.
func (s *Service) summaries(ctx context.Context, ids ...string) (map[string]models.UserSummary, error) {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return s.store.GetUserSummaries(ctx, uniq)
}
