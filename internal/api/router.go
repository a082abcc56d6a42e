// Package api wires the HTTP routes.
package api

import (
	"log/slog"

	"skillswap/backend/internal/api/handler"
	"skillswap/backend/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *handler.Handler, authn middleware.Authenticator, origins []string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.Logger(logger), middleware.CORS(origins))
	h.Upgrader.CheckOrigin = middleware.AllowedOrigin(origins)

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(authn)
	r.GET("/ws", requireAuth, h.ServeWebSocket)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/verify-otp", h.VerifyOTP)
		authGroup.POST("/resend-otp", h.ResendOTP)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/logout", h.Logout)
		authGroup.GET("/profile", requireAuth, h.GetProfile)
		authGroup.PUT("/profile", requireAuth, h.UpdateProfile)
	}

	requests := api.Group("/service-request", requireAuth)
	{
		requests.POST("", h.CreateServiceRequest)
		requests.GET("", h.ListServiceRequests)
		requests.GET("/user", h.ListMyServiceRequests)
		requests.GET("/:id", h.GetServiceRequest)
		requests.PUT("/:id", h.UpdateServiceRequestStatus)
		requests.POST("/:id/claim", h.ClaimServiceRequest)
		requests.DELETE("/:id", h.DeleteServiceRequest)
	}

	chat := api.Group("/chat", requireAuth)
	{
		chat.GET("/service-request/:id", h.GetOrCreateChat)
		chat.GET("/user", h.ListMyChats)
		chat.GET("/:chatId/messages", h.GetMessages)
		chat.POST("/:chatId/messages", h.SendMessage)
		chat.PUT("/:chatId/read", h.MarkRead)
	}

	exchanges := api.Group("/skill-exchange", requireAuth)
	{
		exchanges.GET("/matches", h.ExchangeMatches)
		exchanges.POST("", h.CreateExchange)
		exchanges.GET("/user", h.ListMyExchanges)
		exchanges.PUT("/:id", h.UpdateExchange)
		exchanges.DELETE("/:id", h.DeleteExchange)
	}

	return r
}
