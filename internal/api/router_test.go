package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"skillswap/backend/internal/api/apitest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(c.t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

func field(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[p]
	}
	return cur
}

func TestAuthFlow(t *testing.T) {
	env := apitest.New(t)
	anon := client{t: t, base: env.Server.URL}

	status, body := anon.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Alice", "email": "alice@example.com", "password": "secret1", "skills": []string{"go"},
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Nil(t, field(body, "user", "password_hash"), "hash must never be serialized")

	status, _ = anon.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Alice", "email": "alice@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = anon.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "alice@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = anon.do(http.MethodPost, "/api/auth/verify-otp", map[string]any{
		"email": "alice@example.com", "otp": env.Mailer.Code("alice@example.com"),
	})
	require.Equal(t, http.StatusOK, status)

	status, body = anon.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	status, _ = anon.do(http.MethodGet, "/api/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	alice := client{t: t, base: env.Server.URL, token: token}
	status, body = alice.do(http.MethodPut, "/api/auth/profile", map[string]any{"bio": "gopher", "telegram_chat_id": 42})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "gopher", field(body, "user", "bio"))
	assert.EqualValues(t, 42, field(body, "user", "telegram_chat_id"))
	assert.Equal(t, "Alice", field(body, "user", "name"))

	status, _ = alice.do(http.MethodGet, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestNegotiationOverHTTP(t *testing.T) {
	env := apitest.New(t)
	_, aliceToken := env.User(t, "alice")
	bobUser, bobToken := env.User(t, "bob")
	_, carolToken := env.User(t, "carol")
	alice := client{t: t, base: env.Server.URL, token: aliceToken}
	bob := client{t: t, base: env.Server.URL, token: bobToken}
	carol := client{t: t, base: env.Server.URL, token: carolToken}

	status, body := alice.do(http.MethodPost, "/api/service-request", map[string]any{
		"title": "Logo", "description": "A logo", "budget": "150", "deadline": "2099-01-01", "skills": []string{"design"},
	})
	require.Equal(t, http.StatusCreated, status, body)
	id, _ := field(body, "request", "id").(string)
	require.NotEmpty(t, id)
	assert.EqualValues(t, 150, field(body, "request", "budget"))

	status, _ = alice.do(http.MethodPost, "/api/service-request", map[string]any{
		"title": "Logo", "description": "A logo", "budget": 0, "deadline": "2099-01-01", "skills": []string{"design"},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = bob.do(http.MethodGet, "/api/service-request", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["requests"], 1)
	status, body = bob.do(http.MethodGet, "/api/service-request/user", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["requests"], 0)

	status, _ = alice.do(http.MethodPost, "/api/service-request/"+id+"/claim", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = bob.do(http.MethodPost, "/api/service-request/"+id+"/claim", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "in_progress", field(body, "request", "status"))
	chatID, _ := field(body, "chat", "id").(string)
	require.NotEmpty(t, chatID)

	status, _ = carol.do(http.MethodPut, "/api/service-request/"+id, map[string]any{"status": "in_progress"})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = alice.do(http.MethodDelete, "/api/service-request/"+id, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = alice.do(http.MethodGet, "/api/chat/service-request/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, chatID, field(body, "chat", "id"))
	status, _ = carol.do(http.MethodGet, "/api/chat/service-request/"+id, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = bob.do(http.MethodPost, "/api/chat/"+chatID+"/messages", map[string]any{"content": "hi"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, bobUser.ID, field(body, "message", "sender_id"))
	status, _ = bob.do(http.MethodPost, "/api/chat/"+chatID+"/messages", map[string]any{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = alice.do(http.MethodGet, "/api/chat/user", nil)
	require.Equal(t, http.StatusOK, status)
	chats, _ := body["chats"].([]any)
	require.Len(t, chats, 1)
	assert.EqualValues(t, 1, field(chats[0].(map[string]any), "unread_count"))

	status, body = alice.do(http.MethodPut, "/api/chat/"+chatID+"/read", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["updated"])

	status, body = alice.do(http.MethodGet, "/api/chat/"+chatID+"/messages?after=0", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"], 1)
	status, _ = alice.do(http.MethodGet, "/api/chat/"+chatID+"/messages?after=x", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = alice.do(http.MethodPut, "/api/service-request/"+id, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, status)
	status, body = bob.do(http.MethodPut, "/api/service-request/"+id, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", field(body, "request", "status"))
	status, _ = bob.do(http.MethodPut, "/api/service-request/"+id, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = bob.do(http.MethodGet, "/api/service-request/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSkillExchangeOverHTTP(t *testing.T) {
	env := apitest.New(t)
	_, aliceToken := env.User(t, "alice")
	bobUser, bobToken := env.User(t, "bob")
	alice := client{t: t, base: env.Server.URL, token: aliceToken}
	bob := client{t: t, base: env.Server.URL, token: bobToken}

	status, body := alice.do(http.MethodGet, "/api/skill-exchange/matches", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["matches"], 1)

	status, body = alice.do(http.MethodPost, "/api/skill-exchange", map[string]any{
		"partner_id": bobUser.ID, "offered_skill": "go", "wanted_skill": "design",
	})
	require.Equal(t, http.StatusCreated, status)
	id, _ := field(body, "exchange", "id").(string)

	status, body = bob.do(http.MethodPut, "/api/skill-exchange/"+id, map[string]any{"status": "accepted"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", field(body, "exchange", "status"))

	status, body = bob.do(http.MethodGet, "/api/skill-exchange/user", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["exchanges"], 1)

	status, _ = alice.do(http.MethodDelete, "/api/skill-exchange/"+id, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestOpsEndpoints(t *testing.T) {
	env := apitest.New(t)
	anon := client{t: t, base: env.Server.URL}

	status, body := anon.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = anon.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = anon.do(http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
