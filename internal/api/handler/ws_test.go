package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderchat/backend/internal/models"
)

type wireEvent struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) wsURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialWS(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func expectEvent(t *testing.T, conn *websocket.Conn, typ string) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == typ {
			return ev
		}
	}
}

func rooms(t *testing.T, ev wireEvent) []string {
	t.Helper()
	var list models.RoomList
	require.NoError(t, json.Unmarshal(ev.Data, &list))
	return list.Rooms
}

func TestWebSocket_OrderChatLifecycle(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice@example.com")
	admin := e.admin(t)
	url := e.wsURL(t)

	adminConn := dialWS(t, url, admin.Token)
	assert.Empty(t, rooms(t, expectEvent(t, adminConn, models.EventRejoinedRooms)))
	aliceConn := dialWS(t, url, alice.Token)
	assert.Empty(t, rooms(t, expectEvent(t, aliceConn, models.EventRejoinedRooms)))

	created := e.createOrder(t, alice.Token)
	assert.Zero(t, e.notifier.count(), "an admin is online")

	var ref models.ChatRef
	require.NoError(t, json.Unmarshal(expectEvent(t, adminConn, models.EventJoinedChat).Data, &ref))
	assert.Equal(t, created.Chat.ID, ref.ChatID)
	expectEvent(t, aliceConn, models.EventJoinedChat)

	before := time.Now().Add(-time.Second)
	require.NoError(t, aliceConn.WriteJSON(gin.H{"type": "message", "chatId": created.Chat.ID, "content": "hi"}))

	var msg models.Message
	require.NoError(t, json.Unmarshal(expectEvent(t, adminConn, models.EventNewMessage).Data, &msg))
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, alice.User.ID, msg.SenderID)
	assert.False(t, msg.CreatedAt.Before(before))

	w := e.do(t, http.MethodPatch, "/api/orders/"+created.Order.ID+"/status", admin.Token, gin.H{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, conn := range []*websocket.Conn{adminConn, aliceConn} {
		require.NoError(t, json.Unmarshal(expectEvent(t, conn, models.EventChatClosed).Data, &ref))
		assert.Equal(t, created.Chat.ID, ref.ChatID)
	}

	require.NoError(t, aliceConn.WriteJSON(gin.H{"type": "message", "chatId": created.Chat.ID, "content": "hello?"}))
	var detail models.ErrorDetail
	require.NoError(t, json.Unmarshal(expectEvent(t, aliceConn, models.EventError).Data, &detail))
	assert.Equal(t, "room_closed", detail.Code)
}

func TestWebSocket_ReconnectRejoinsActiveRooms(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "alice@example.com")
	bob := e.register(t, "bob@example.com")
	admin := e.admin(t)
	aliceOrder := e.createOrder(t, alice.Token)
	bobOrder := e.createOrder(t, bob.Token)
	url := e.wsURL(t)

	adminConn := dialWS(t, url, admin.Token)
	assert.ElementsMatch(t, []string{aliceOrder.Chat.ID, bobOrder.Chat.ID}, rooms(t, expectEvent(t, adminConn, models.EventRejoinedRooms)))

	aliceConn := dialWS(t, url, alice.Token)
	assert.Equal(t, []string{aliceOrder.Chat.ID}, rooms(t, expectEvent(t, aliceConn, models.EventRejoinedRooms)))
}

func TestWebSocket_RejectsBadTokens(t *testing.T) {
	e := newTestEnv(t)
	url := e.wsURL(t)

	for token, reason := range map[string]string{"": "Authentication required", "forged": "Authentication failed"} {
		conn := dialWS(t, url, token)
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, _, err := conn.ReadMessage()

		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
		assert.Equal(t, reason, closeErr.Text)
	}
	assert.Zero(t, e.hub.Registry.Count())
}
