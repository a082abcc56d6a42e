package chathub_test

import (
	"context"
	"sync"

	"skillswap/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	userID string
	connID string

	RecvChannel chan models.Envelope
	closeOnce   sync.Once
	closed      chan struct{}
}

func newMockClient(userID, connID string, buffer int) *MockClient {
	return &MockClient{
		userID:      userID,
		connID:      connID,
		RecvChannel: make(chan models.Envelope, buffer),
		closed:      make(chan struct{}),
	}
}

func (c *MockClient) GetUserID() string                      { return c.userID }
func (c *MockClient) GetConnID() string                      { return c.connID }
func (c *MockClient) GetSendChannel() chan<- models.Envelope { return c.RecvChannel }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) CanJoin(ctx context.Context, userID, roomID string) error {
	args := m.Called(userID, roomID)
	return args.Error(0)
}

func (m *MockAuthorizer) ResolveMessage(ctx context.Context, userID, roomID string, messageID uint) (*models.Message, error) {
	args := m.Called(userID, roomID, messageID)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}
