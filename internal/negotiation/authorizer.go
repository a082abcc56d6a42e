package negotiation

import (
	"context"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"
)

// CanJoin reports whether userID may join the realtime room of channel roomID.
func (s *Service) CanJoin(ctx context.Context, userID, roomID string) error {
	_, err := s.participantChannel(ctx, roomID, userID)
	return err
}

// ResolveMessage loads a stored message announced over the realtime connection.
// It must belong to roomID and must have been sent by userID.
func (s *Service) ResolveMessage(ctx context.Context, userID, roomID string, messageID uint) (*models.Message, error) {
	if messageID == 0 {
		return nil, errs.Validation("message_id is required")
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.ChannelID != roomID {
		return nil, errs.NotFound("message")
	}
	if msg.SenderID != userID {
		return nil, errs.Authorization("message was sent by another user")
	}
	users, err := s.summaries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u, ok := users[userID]; ok {
		msg.Sender = &u
	}
	return msg, nil
}
