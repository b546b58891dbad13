package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orderchat/backend/internal/models"
)

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": h.Hub.Registry.Count(),
			"rooms":       h.Hub.Rooms.RoomCount(),
		})
	})
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.GET("/profile", h.RequireAuth(), h.Profile)

	orders := api.Group("/orders", h.RequireAuth())
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PATCH("/:id/status", RequireRole(models.RoleAdmin), h.UpdateOrderStatus)

	chats := api.Group("/chat", h.RequireAuth())
	chats.GET("", RequireRole(models.RoleAdmin), h.ListChats)
	chats.GET("/my-chats", h.MyChats)
	chats.GET("/:id", h.GetChat)
	chats.GET("/:id/messages", h.ChatMessages)

	messages := api.Group("/messages", h.RequireAuth())
	messages.POST("/:id/messages", h.PostMessage)
}
