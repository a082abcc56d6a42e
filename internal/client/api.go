// Package client is the Go SDK for the SkillSwap backend: a typed REST client, the
// realtime connection manager and the negotiation session that drives both.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/models"
)

// API calls the REST endpoints. Failed calls return errors matching the errs sentinels.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RequestInput is the body of CreateRequest. Deadline is RFC 3339 or YYYY-MM-DD.
type RequestInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Budget      float64  `json:"budget"`
	Deadline    string   `json:"deadline"`
	Skills      []string `json:"skills"`
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &e)
		if e.Message == "" {
			e.Message = resp.Status
		}
		return errs.FromHTTPStatus(resp.StatusCode, e.Message)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Login exchanges credentials for a token and keeps it for later calls.
func (a *API) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &out); err != nil {
		return nil, err
	}
	a.Token = out.Token
	return out.User, nil
}

func (a *API) Profile(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type requestResponse struct {
	Request *models.ServiceRequest `json:"request"`
	Chat    *models.ChatChannel    `json:"chat"`
}

func (a *API) CreateRequest(ctx context.Context, in RequestInput) (*models.ServiceRequest, error) {
	var out requestResponse
	if err := a.do(ctx, http.MethodPost, "/api/service-request", in, &out); err != nil {
		return nil, err
	}
	return out.Request, nil
}

func (a *API) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var out requestResponse
	if err := a.do(ctx, http.MethodGet, requestPath(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Request, nil
}

// ListRequests lists every request, or only the caller's when mine is set.
func (a *API) ListRequests(ctx context.Context, mine bool) ([]models.ServiceRequest, error) {
	path := "/api/service-request"
	if mine {
		path += "/user"
	}
	var out struct {
		Requests []models.ServiceRequest `json:"requests"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// Claim takes an open request. The channel is nil if the server deferred creating it.
func (a *API) Claim(ctx context.Context, id string) (*models.ServiceRequest, *models.ChatChannel, error) {
	var out requestResponse
	if err := a.do(ctx, http.MethodPost, requestPath(id)+"/claim", nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Request, out.Chat, nil
}

func (a *API) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (*models.ServiceRequest, error) {
	var out requestResponse
	if err := a.do(ctx, http.MethodPut, requestPath(id), map[string]any{"status": status}, &out); err != nil {
		return nil, err
	}
	return out.Request, nil
}

func (a *API) DeleteRequest(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, requestPath(id), nil, nil)
}

func (a *API) GetOrCreateChat(ctx context.Context, requestID string) (*models.ChannelView, error) {
	var out struct {
		Chat models.ChannelView `json:"chat"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/chat/service-request/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Chat, nil
}

func (a *API) ListChats(ctx context.Context) ([]models.ChannelSummary, error) {
	var out struct {
		Chats []models.ChannelSummary `json:"chats"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/chat/user", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// Messages returns the channel log after afterID; zero means the whole log.
func (a *API) Messages(ctx context.Context, chatID string, afterID uint) ([]models.Message, error) {
	path := chatPath(chatID) + "/messages"
	if afterID > 0 {
		path += "?after=" + strconv.FormatUint(uint64(afterID), 10)
	}
	var out struct {
		Messages []models.Message `json:"messages"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (a *API) SendMessage(ctx context.Context, chatID, content string) (*models.Message, error) {
	var out struct {
		Message models.Message `json:"message"`
	}
	if err := a.do(ctx, http.MethodPost, chatPath(chatID)+"/messages", map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func (a *API) MarkRead(ctx context.Context, chatID string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := a.do(ctx, http.MethodPut, chatPath(chatID)+"/read", nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func requestPath(id string) string { return "/api/service-request/" + url.PathEscape(id) }
func chatPath(id string) string    { return "/api/chat/" + url.PathEscape(id) }
