package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderchat/backend/internal/models"
)

// fakeBotAPI answers the two Bot API methods the notifier uses.
type fakeBotAPI struct {
	mu    sync.Mutex
	texts []string
	chats []string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Orders","username":"orders_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		r.ParseMultipartForm(1 << 20)
		f.mu.Lock()
		f.texts = append(f.texts, r.FormValue("text"))
		f.chats = append(f.chats, r.FormValue("chat_id"))
		f.mu.Unlock()
		w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func newFakeNotifier(t *testing.T) (*BotNotifier, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	n, err := NewBotNotifierWithEndpoint("test-token", srv.URL+"/bot%s/%s", 42)
	require.NoError(t, err)
	return n, fake
}

func TestBotNotifier_NotifyUnattendedOrder(t *testing.T) {
	n, fake := newFakeNotifier(t)
	order := &models.Order{ID: "order-1", Symbol: "AAPL", Quantity: 3, Price: 187.5, Type: models.OrderBuy}
	chat := &models.Chat{ID: "chat-1"}

	err := n.NotifyUnattendedOrder(context.Background(), order, chat)

	require.NoError(t, err)
	require.Len(t, fake.texts, 1)
	assert.Contains(t, fake.texts[0], "order-1")
	assert.Contains(t, fake.texts[0], "BUY 3 AAPL @ 187.50")
	assert.Contains(t, fake.texts[0], "chat-1")
	assert.Equal(t, "42", fake.chats[0])
}

func TestBotNotifier_CanceledContext(t *testing.T) {
	n, fake := newFakeNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.NotifyUnattendedOrder(ctx, &models.Order{ID: "order-1"}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.texts)
}

func TestNewBotNotifierWithEndpoint_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewBotNotifierWithEndpoint("bad", srv.URL+"/bot%s/%s", 42)
	assert.Error(t, err)
}

func TestFormatOrderAlert(t *testing.T) {
	text := formatOrderAlert(&models.Order{ID: "o", Symbol: "BTC", Quantity: 1, Price: 0.5, Type: models.OrderSell}, nil)
	assert.Equal(t, "New order without an online admin\nOrder: o\nSELL 1 BTC @ 0.50\n", text)
}
