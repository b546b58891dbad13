package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"orderchat/backend/internal/chathub"
)

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostMessage sends a chat message over HTTP. It follows the same checks and delivery path
// as a websocket message.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.Hub.PostMessage(c.Request.Context(), currentIdentity(c), c.Param("id"), req.Content)
	if err != nil {
		c.JSON(statusForHubError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func statusForHubError(err error) int {
	switch {
	case errors.Is(err, chathub.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, chathub.ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, chathub.ErrRoomClosed):
		return http.StatusConflict
	case errors.Is(err, chathub.ErrMalformedEvent):
		return http.StatusBadRequest
	case errors.Is(err, chathub.ErrStoreFailure):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
