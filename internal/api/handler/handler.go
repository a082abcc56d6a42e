package handler

import (
	"log/slog"
	"net/http"

	"skillswap/backend/internal/auth"
	"skillswap/backend/internal/chathub"
	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/exchange"
	"skillswap/backend/internal/negotiation"
	"skillswap/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler holds the services the HTTP routes call into.
type Handler struct {
	Hub         *chathub.ManagerService
	Negotiation *negotiation.Service
	Auth        *auth.Service
	Exchanges   *exchange.Service
	Store       storage.Storage
	Upgrader    websocket.Upgrader
	// SecureCookie marks the login cookie Secure.
	SecureCookie bool
	log          *slog.Logger
}

func NewHandler(hub *chathub.ManagerService, neg *negotiation.Service, authSvc *auth.Service, ex *exchange.Service, store storage.Storage, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Hub:         hub,
		Negotiation: neg,
		Auth:        authSvc,
		Exchanges:   ex,
		Store:       store,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.With("component", "http"),
	}
}

// fail writes err as {"success":false,"message":...} with its mapped status.
// Unmapped errors are logged and reported without detail.
func (h *Handler) fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

func badBody(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
