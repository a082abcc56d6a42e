package chathub

import (
	"context"

	"skillswap/backend/internal/models"
)

// Client is one realtime connection. A user may hold several at once, so the hub keys
// clients by connection id.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string
	// GetConnID returns an id unique across all instances sharing a broker.
	GetConnID() string

	// GetSendChannel returns the channel the hub writes outgoing envelopes to.
	GetSendChannel() chan<- models.Envelope

	// Run starts the read and write pumps.
	Run()
	// Close stops the connection. It may be called more than once.
	Close()
}

// Authorizer answers the durable-store questions the gateway has to ask before it
// relays anything.
type Authorizer interface {
	CanJoin(ctx context.Context, userID, roomID string) error
	ResolveMessage(ctx context.Context, userID, roomID string, messageID uint) (*models.Message, error)
}
