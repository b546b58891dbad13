package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"orderchat/backend/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and runs the realtime session until the socket
// closes. The token is read from the "token" query parameter. A failed handshake closes
// the socket with a policy-violation frame.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WARNING: Websocket upgrade failed: %v", err)
		return
	}

	client := chathub.NewWebSocketClient(conn)
	session, err := h.Hub.Authenticate(c.Request.Context(), client, c.Query("token"))
	if err != nil {
		reason := "Authentication failed"
		if errors.Is(err, chathub.ErrAuthenticationRequired) {
			reason = "Authentication required"
		}
		client.Reject(websocket.ClosePolicyViolation, reason)
		return
	}

	client.Run(c.Request.Context(), session)
}
