package handler

import (
	"net/http"

	"skillswap/backend/internal/api/middleware"
	"skillswap/backend/internal/exchange"
	"skillswap/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type exchangeStatusBody struct {
	Status models.ExchangeStatus `json:"status"`
}

func (h *Handler) ExchangeMatches(c *gin.Context) {
	matches, err := h.Exchanges.Matches(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "matches": matches})
}

func (h *Handler) CreateExchange(c *gin.Context) {
	var body exchange.Proposal
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	e, err := h.Exchanges.Propose(c.Request.Context(), middleware.UserID(c), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "exchange": e})
}

func (h *Handler) ListMyExchanges(c *gin.Context) {
	items, err := h.Exchanges.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "exchanges": items})
}

func (h *Handler) UpdateExchange(c *gin.Context) {
	var body exchangeStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	e, err := h.Exchanges.UpdateStatus(c.Request.Context(), c.Param("id"), middleware.UserID(c), body.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "exchange": e})
}

func (h *Handler) DeleteExchange(c *gin.Context) {
	if err := h.Exchanges.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Skill exchange deleted"})
}
