package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"skillswap/backend/internal/api/middleware"
	"skillswap/backend/internal/lifecycle"
	"skillswap/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type createRequestBody struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      json.RawMessage `json:"budget"`
	Deadline    string          `json:"deadline"`
	Skills      []string        `json:"skills"`
}

type statusBody struct {
	Status models.RequestStatus `json:"status"`
}

// rawText accepts a JSON number or a JSON string and returns its text.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (h *Handler) CreateServiceRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	r, err := h.Negotiation.Create(c.Request.Context(), middleware.UserID(c), lifecycle.Draft{
		Title:       body.Title,
		Description: body.Description,
		Budget:      rawText(body.Budget),
		Deadline:    body.Deadline,
		Skills:      body.Skills,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "request": r})
}

func (h *Handler) ListServiceRequests(c *gin.Context) {
	h.listServiceRequests(c, "")
}

func (h *Handler) ListMyServiceRequests(c *gin.Context) {
	h.listServiceRequests(c, middleware.UserID(c))
}

func (h *Handler) listServiceRequests(c *gin.Context, ownerID string) {
	items, err := h.Negotiation.List(c.Request.Context(), ownerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "requests": items})
}

func (h *Handler) GetServiceRequest(c *gin.Context) {
	r, err := h.Negotiation.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": r})
}

func (h *Handler) UpdateServiceRequestStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	res, err := h.Negotiation.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": res.Request, "chat": res.Channel})
}

func (h *Handler) ClaimServiceRequest(c *gin.Context) {
	res, err := h.Negotiation.Claim(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": res.Request, "chat": res.Channel})
}

func (h *Handler) DeleteServiceRequest(c *gin.Context) {
	if err := h.Negotiation.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Service request deleted"})
}
