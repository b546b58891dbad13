package chathub

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"orderchat/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// WebSocketClient implements Client on top of a gorilla websocket connection.
type WebSocketClient struct {
	id   string
	conn *websocket.Conn
	send chan models.OutboundEvent

	mu     sync.Mutex
	closed bool
}

// NewWebSocketClient wraps an upgraded connection.
func NewWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan models.OutboundEvent, sendBufferSize),
	}
}

func (c *WebSocketClient) ID() string { return c.id }

// Send queues event for the write pump. A connection whose buffer is full is closed
// instead of blocking the caller.
func (c *WebSocketClient) Send(event models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		log.Printf("WARNING: Send buffer full for connection %s, closing it", c.id)
		c.closed = true
		close(c.send)
		return false
	}
}

// Close stops the write pump, which then closes the socket.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Reject closes a connection that failed the handshake with a policy-violation frame.
func (c *WebSocketClient) Reject(code int, reason string) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		log.Printf("WARNING: Failed to send close frame to %s: %v", c.id, err)
	}
	c.conn.Close()
}

// Run starts the write pump and reads from the socket until it closes, handing every
// message to session in arrival order.
func (c *WebSocketClient) Run(ctx context.Context, session *Session) {
	go c.writePump()
	c.readPump(ctx, session)
}

func (c *WebSocketClient) readPump(ctx context.Context, session *Session) {
	defer func() {
		session.Close()
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ERROR: Reading from connection %s: %v", c.id, err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		session.Handle(ctx, message)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("ERROR: Encoding event for connection %s: %v", c.id, err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
