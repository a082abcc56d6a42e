package negotiation

import (
	"context"
	"strings"
	"unicode/utf8"

	"skillswap/backend/internal/config"
	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/metrics"
	"skillswap/backend/internal/models"
)

// GetOrCreateChannel returns the channel of a claimed request with its full history.
// Only the owner and the assignee may open it.
func (s *Service) GetOrCreateChannel(ctx context.Context, requestID, actorID string) (*models.ChannelView, error) {
	r, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != actorID && !r.IsAssignee(actorID) {
		return nil, errs.Authorization("only the owner and the assignee can open this chat")
	}
	ch, err := s.store.EnsureChannel(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, ch)
}

func (s *Service) GetChannel(ctx context.Context, channelID, actorID string) (*models.ChannelView, error) {
	ch, err := s.participantChannel(ctx, channelID, actorID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, ch)
}

// Messages returns the messages after afterID; zero returns the whole log.
func (s *Service) Messages(ctx context.Context, channelID, actorID string, afterID uint) ([]models.Message, error) {
	if _, err := s.participantChannel(ctx, channelID, actorID); err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, channelID, afterID)
	if err != nil {
		return nil, err
	}
	return messages, s.attachSenders(ctx, messages)
}

// AppendMessage stores content as the next message of the channel.
func (s *Service) AppendMessage(ctx context.Context, channelID, senderID, content string) (*models.Message, error) {
	ch, err := s.participantChannel(ctx, channelID, senderID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > config.MaxMessageLength {
		return nil, errs.Validation("message is longer than %d characters", config.MaxMessageLength)
	}

	msg := &models.Message{
		ChannelID: ch.ID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	users, err := s.summaries(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if u, ok := users[senderID]; ok {
		msg.Sender = &u
	}
	s.notify.MessageSent(ctx, ch, msg)
	return msg, nil
}

// MarkRead marks the other participant's messages as read and returns how many changed.
func (s *Service) MarkRead(ctx context.Context, channelID, readerID string) (int64, error) {
	if _, err := s.participantChannel(ctx, channelID, readerID); err != nil {
		return 0, err
	}
	return s.store.MarkRead(ctx, channelID, readerID)
}

// ListForUser returns the user's chats, most recently active first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.ChannelSummary, error) {
	items, err := s.store.ListChannelsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items)*2)
	for _, it := range items {
		ids = append(ids, it.ParticipantIDs()...)
	}
	users, err := s.summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Participants = participants(&items[i].ChatChannel, users)
	}
	return items, nil
}

func (s *Service) participantChannel(ctx context.Context, channelID, userID string) (*models.ChatChannel, error) {
	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !ch.IsParticipant(userID) {
		return nil, errs.Authorization("not a participant of this chat")
	}
	return ch, nil
}

func (s *Service) view(ctx context.Context, ch *models.ChatChannel) (*models.ChannelView, error) {
	messages, err := s.store.GetMessages(ctx, ch.ID, 0)
	if err != nil {
		return nil, err
	}
	users, err := s.summaries(ctx, ch.ParticipantIDs()...)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if u, ok := users[messages[i].SenderID]; ok {
			messages[i].Sender = &u
		}
	}
	return &models.ChannelView{
		ChatChannel:  *ch,
		Participants: participants(ch, users),
		Messages:     messages,
	}, nil
}

func (s *Service) attachSenders(ctx context.Context, messages []models.Message) error {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.SenderID)
	}
	users, err := s.summaries(ctx, ids...)
	if err != nil {
		return err
	}
	for i := range messages {
		if u, ok := users[messages[i].SenderID]; ok {
			messages[i].Sender = &u
		}
	}
	return nil
}

func participants(ch *models.ChatChannel, users map[string]models.UserSummary) []models.UserSummary {
	out := make([]models.UserSummary, 0, 2)
	for _, id := range ch.ParticipantIDs() {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
	}
	return out
}
