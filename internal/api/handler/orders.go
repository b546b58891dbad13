package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderchat/backend/internal/models"
	"orderchat/backend/internal/storage"
)

type createOrderRequest struct {
	Symbol   string           `json:"symbol" binding:"required"`
	Price    *float64         `json:"price" binding:"required,gte=0"`
	Type     models.OrderType `json:"type" binding:"required,oneof=BUY SELL"`
	Quantity int              `json:"quantity" binding:"required,gte=1"`
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// CreateOrder stores the order and its chat, then attaches every interested live connection
// to the new room.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	identity := currentIdentity(c)

	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	order := &models.Order{
		UserID:   identity.UserID,
		Symbol:   req.Symbol,
		Quantity: req.Quantity,
		Price:    *req.Price,
		Type:     req.Type,
	}
	chat, err := h.Store.CreateOrderWithChat(ctx, order)
	if err != nil {
		log.Printf("ERROR: Failed to create order for %s: %v", identity.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	_, admins := h.Hub.AttachOrderChat(identity.Email, chat)
	if admins == 0 && h.Notifier != nil {
		h.alertStaff(*order, *chat)
	}

	c.JSON(http.StatusCreated, gin.H{"order": order, "chat": chat})
}

// alertStaff tells the notifier about an order nobody is watching. It runs in the
// background so a slow Bot API never holds up the response.
func (h *Handler) alertStaff(order models.Order, chat models.Chat) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.NotifyTimeout)
		defer cancel()

		if err := h.Notifier.NotifyUnattendedOrder(ctx, &order, &chat); err != nil {
			log.Printf("WARNING: Could not alert staff about order %s: %v", order.ID, err)
		}
	}()
}

// ListOrders returns every order for admins and the caller's own orders otherwise.
func (h *Handler) ListOrders(c *gin.Context) {
	identity := currentIdentity(c)
	userID := identity.UserID
	if identity.IsAdmin() {
		userID = ""
	}

	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	orders, err := h.Store.ListOrders(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns one order to its owner or an admin.
func (h *Handler) GetOrder(c *gin.Context) {
	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	order, ok := h.loadOrder(ctx, c)
	if !ok {
		return
	}
	identity := currentIdentity(c)
	if !identity.IsAdmin() && order.UserID != identity.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus changes the status of an order. Completing or cancelling it closes
// its chat and tells everyone in the room.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	order, chat, err := h.Store.UpdateOrderStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		log.Printf("ERROR: Failed to update order %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	if chat != nil {
		h.Hub.NotifyRoomClosed(chat.ID)
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) loadOrder(ctx context.Context, c *gin.Context) (*models.Order, bool) {
	order, err := h.Store.GetOrderByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return nil, false
	}
	return order, true
}
