package telegram

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"

	"skillswap/backend/internal/localization"
	"skillswap/backend/internal/metrics"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

const previewLength = 200

// Notifier tells users about their negotiations in the Telegram chat linked to their
// profile. Users without a linked chat are skipped. Delivery happens in the background.
type Notifier struct {
	bot       Sender
	store     storage.Storage
	localizer *localization.Localizer
	log       *slog.Logger
	wg        sync.WaitGroup
}

func NewNotifier(bot Sender, store storage.Storage, localizer *localization.Localizer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		bot:       bot,
		store:     store,
		localizer: localizer,
		log:       logger.With("component", "telegram"),
	}
}

// RequestClaimed notifies the owner.
func (n *Notifier) RequestClaimed(ctx context.Context, r *models.ServiceRequest) {
	if r.AssignedTo == nil {
		return
	}
	title, owner, assignee := r.Title, r.OwnerID, *r.AssignedTo
	n.async(ctx, "request_claimed", func(ctx context.Context) error {
		return n.deliver(ctx, "request_claimed", owner, assignee, func(lang, from string) string {
			return n.localizer.Format(lang, "request_claimed", from, title)
		})
	})
}

// RequestCompleted notifies the owner.
func (n *Notifier) RequestCompleted(ctx context.Context, r *models.ServiceRequest) {
	if r.AssignedTo == nil {
		return
	}
	title, owner, assignee := r.Title, r.OwnerID, *r.AssignedTo
	n.async(ctx, "request_completed", func(ctx context.Context) error {
		return n.deliver(ctx, "request_completed", owner, assignee, func(lang, from string) string {
			return n.localizer.Format(lang, "request_completed", from, title)
		})
	})
}

// MessageSent notifies the participant who did not send msg.
func (n *Notifier) MessageSent(ctx context.Context, ch *models.ChatChannel, msg *models.Message) {
	recipient := ch.OwnerID
	if msg.SenderID == ch.OwnerID {
		recipient = ch.AssigneeID
	}
	sender, requestID, content := msg.SenderID, ch.ServiceRequestID, preview(msg.Content)
	n.async(ctx, "new_message", func(ctx context.Context) error {
		r, err := n.store.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		return n.deliver(ctx, "new_message", recipient, sender, func(lang, from string) string {
			return n.localizer.Format(lang, "new_message", from, r.Title, content)
		})
	})
}

// Wait blocks until queued notifications are sent.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) async(ctx context.Context, kind string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := fn(ctx); err != nil {
			metrics.NotificationsSent.WithLabelValues(kind, "error").Inc()
			n.log.Warn("notification failed", "kind", kind, "error", err)
		}
	}()
}

func (n *Notifier) deliver(ctx context.Context, kind, recipientID, actorID string, text func(lang, from string) string) error {
	recipient, err := n.store.GetUserByID(ctx, recipientID)
	if err != nil {
		return err
	}
	if recipient.TelegramChatID == 0 {
		metrics.NotificationsSent.WithLabelValues(kind, "unlinked").Inc()
		return nil
	}
	from := actorID
	if actor, err := n.store.GetUserByID(ctx, actorID); err == nil {
		from = actor.Name
	}

	msg := tgbotapi.NewMessage(recipient.TelegramChatID, text(recipient.Language, from))
	if _, err := n.bot.Send(msg); err != nil {
		return err
	}
	metrics.NotificationsSent.WithLabelValues(kind, "sent").Inc()
	n.log.Debug("notification sent", "kind", kind, "user_id", recipientID)
	return nil
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	r := []rune(s)
	return string(r[:previewLength]) + "…"
}
