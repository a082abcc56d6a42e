// Package apitest runs the full HTTP stack on SQLite and an in-process broker for tests.
package apitest

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"skillswap/backend/internal/api"
	"skillswap/backend/internal/api/handler"
	"skillswap/backend/internal/auth"
	"skillswap/backend/internal/chathub"
	"skillswap/backend/internal/exchange"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/negotiation"
	"skillswap/backend/internal/storage/storagetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type Env struct {
	Server *httptest.Server
	Store  *storagetest.Store
	Hub    *chathub.ManagerService
	Tokens *auth.Issuer
	Mailer *Mailer
}

// Mailer keeps the last code sent to each address.
type Mailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *Mailer) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *Mailer) Code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func New(t testing.TB) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storagetest.New(t)
	tokens := auth.NewIssuer("test-secret", time.Hour)
	mailer := &Mailer{codes: map[string]string{}}

	neg := negotiation.NewService(store, nil, nil)
	authSvc := auth.NewService(store, tokens, mailer, time.Minute, nil)
	hub := chathub.NewManagerService(neg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	h := handler.NewHandler(hub, neg, authSvc, exchange.NewService(store, nil), store, nil)
	srv := httptest.NewServer(api.NewRouter(h, authSvc, nil, nil))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &Env{Server: srv, Store: store, Hub: hub, Tokens: tokens, Mailer: mailer}
}

// User seeds a verified user and returns it with an access token.
func (e *Env) User(t testing.TB, name string) (*models.User, string) {
	t.Helper()
	u := e.Store.SeedUser(t, name)
	token, _, err := e.Tokens.Issue(u.ID)
	require.NoError(t, err)
	return u, token
}
