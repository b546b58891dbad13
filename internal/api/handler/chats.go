package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderchat/backend/internal/models"
	"orderchat/backend/internal/storage"
)

// ListChats returns every chat. Admin only.
func (h *Handler) ListChats(c *gin.Context) {
	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	chats, err := h.Store.ListChats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

// MyChats returns the chats the caller participates in. Admins see every chat.
func (h *Handler) MyChats(c *gin.Context) {
	identity := currentIdentity(c)

	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	var (
		chats []models.Chat
		err   error
	)
	if identity.IsAdmin() {
		chats, err = h.Store.ListChats(ctx)
	} else {
		chats, err = h.Store.ListChatsForUser(ctx, identity.UserID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

// GetChat returns one chat. The ID may also be the ID of the chat's order.
func (h *Handler) GetChat(c *gin.Context) {
	chat, ok := h.loadAccessibleChat(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, chat)
}

// ChatMessages returns the message history of a chat, oldest first.
func (h *Handler) ChatMessages(c *gin.Context) {
	chat, ok := h.loadAccessibleChat(c)
	if !ok {
		return
	}

	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	history, err := h.Store.GetChatHistory(ctx, chat.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) loadAccessibleChat(c *gin.Context) (*models.Chat, bool) {
	ctx, cancel := h.requestContext(c.Request.Context())
	defer cancel()

	id := c.Param("id")
	chat, err := h.Store.FindRoom(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		chat, err = h.Store.FindRoomByOrderID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat"})
		return nil, false
	}

	identity := currentIdentity(c)
	if !identity.IsAdmin() && !chat.HasParticipant(identity.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}
	return chat, true
}
