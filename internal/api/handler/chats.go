package handler

import (
	"net/http"
	"strconv"

	"skillswap/backend/internal/api/middleware"
	"skillswap/backend/internal/errs"

	"github.com/gin-gonic/gin"
)

type messageBody struct {
	Content string `json:"content"`
}

func (h *Handler) GetOrCreateChat(c *gin.Context) {
	view, err := h.Negotiation.GetOrCreateChannel(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat": view})
}

func (h *Handler) ListMyChats(c *gin.Context) {
	chats, err := h.Negotiation.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": chats})
}

// GetMessages returns the log, or only messages after ?after=<id> for resync.
func (h *Handler) GetMessages(c *gin.Context) {
	var after uint64
	if v := c.Query("after"); v != "" {
		var err error
		if after, err = strconv.ParseUint(v, 10, 64); err != nil {
			h.fail(c, errs.Validation("after must be a message id"))
			return
		}
	}
	messages, err := h.Negotiation.Messages(c.Request.Context(), c.Param("chatId"), middleware.UserID(c), uint(after))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

func (h *Handler) SendMessage(c *gin.Context) {
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	msg, err := h.Negotiation.AppendMessage(c.Request.Context(), c.Param("chatId"), middleware.UserID(c), body.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}

// MarkRead also tells the room, so the sender's client can show the messages as read.
func (h *Handler) MarkRead(c *gin.Context) {
	chatID, userID := c.Param("chatId"), middleware.UserID(c)
	n, err := h.Negotiation.MarkRead(c.Request.Context(), chatID, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if n > 0 && h.Hub != nil {
		h.Hub.BroadcastRead(c.Request.Context(), chatID, userID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}
