// Package telegram handles the integration with the Telegram Bot API: outgoing
// negotiation notifications and the small command bot users link their chat with.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/localization"
	"skillswap/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the part of *tgbotapi.BotAPI the command handlers use.
type BotAPI interface {
	Sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotService answers bot commands. Notifications go through Notifier.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	api       BotAPI
	Storage   storage.Storage
	Localizer *localization.Localizer
	log       *slog.Logger
}

// NewBotAPI authorizes the bot token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return bot, nil
}

func NewBotService(bot *tgbotapi.BotAPI, s storage.Storage, localizer *localization.Localizer, logger *slog.Logger) *BotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotService{
		BotAPI:    bot,
		api:       bot,
		Storage:   s,
		Localizer: localizer,
		log:       logger.With("component", "telegram_bot"),
	}
}

// Run is the main loop for receiving Telegram updates. It returns when ctx is done.
func (s *BotService) Run(ctx context.Context) {
	s.log.Info("bot started", "account", s.BotAPI.Self.UserName)
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.Message != nil && update.Message.IsCommand():
				lang := ""
				if update.Message.From != nil {
					lang = update.Message.From.LanguageCode
				}
				s.handleCommand(ctx, update.Message.Chat.ID, update.Message.Command(), lang)
			case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
				s.answerCallback(update.CallbackQuery.ID)
				s.handleCallback(ctx, update.CallbackQuery.Message.Chat.ID, update.CallbackQuery.Data)
			}
		}
	}
}

func (s *BotService) handleCommand(ctx context.Context, chatID int64, command, clientLang string) {
	lang := s.languageFor(ctx, chatID, clientLang)
	switch command {
	case "start":
		s.reply(chatID, s.Localizer.Format(lang, "welcome", chatID))
	case "language":
		msg := tgbotapi.NewMessage(chatID, s.Localizer.GetString(lang, "choose_language"))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("English", "set_lang_en"),
				tgbotapi.NewInlineKeyboardButtonData("Українська", "set_lang_uk"),
			),
		)
		s.send(msg)
	}
}

func (s *BotService) handleCallback(ctx context.Context, chatID int64, data string) {
	if !strings.HasPrefix(data, "set_lang_") {
		return
	}
	langCode := strings.TrimPrefix(data, "set_lang_")
	if !s.Localizer.Supports(langCode) {
		return
	}

	user, err := s.Storage.GetUserByTelegramChatID(ctx, chatID)
	if errors.Is(err, errs.ErrNotFound) {
		s.reply(chatID, s.Localizer.GetString(langCode, "not_linked"))
		return
	}
	if err != nil {
		s.log.Error("lookup by chat failed", "chat_id", chatID, "error", err)
		return
	}
	user.Language = langCode
	if err := s.Storage.UpdateUser(ctx, user); err != nil {
		s.log.Error("update language failed", "user_id", user.ID, "error", err)
		return
	}
	s.reply(chatID, s.Localizer.GetString(langCode, "language_changed"))
}

// languageFor prefers the linked user's language, then the Telegram client's.
func (s *BotService) languageFor(ctx context.Context, chatID int64, clientLang string) string {
	if user, err := s.Storage.GetUserByTelegramChatID(ctx, chatID); err == nil && user.Language != "" {
		return user.Language
	}
	if s.Localizer.Supports(clientLang) {
		return clientLang
	}
	return localization.DefaultLanguage
}

func (s *BotService) answerCallback(id string) {
	if _, err := s.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		s.log.Warn("failed to send callback response", "error", err)
	}
}

func (s *BotService) reply(chatID int64, text string) {
	s.send(tgbotapi.NewMessage(chatID, text))
}

func (s *BotService) send(c tgbotapi.Chattable) {
	if _, err := s.api.Send(c); err != nil {
		s.log.Warn("send failed", "error", err)
	}
}
