package chathub_test

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/models"
)

// MockStore is a testify mock of chathub.RoomStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindRoom(ctx context.Context, chatID string) (*models.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStore) FindRoomByOrderID(ctx context.Context, orderID string) (*models.Chat, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStore) FindActiveRooms(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *MockStore) SaveMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// stubVerifier resolves tokens from a fixed table.
type stubVerifier map[string]auth.Identity

var errBadToken = errors.New("token is invalid")

func (v stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	id, ok := v[token]
	if !ok {
		return auth.Identity{}, errBadToken
	}
	return id, nil
}

// MockClient records every event it is sent.
type MockClient struct {
	id string

	mu     sync.Mutex
	events []models.OutboundEvent
	closed bool
	// capacity bounds the number of accepted events when positive.
	capacity int
}

func newMockClient(id string) *MockClient {
	return &MockClient{id: id}
}

func (c *MockClient) ID() string { return c.id }

func (c *MockClient) Send(event models.OutboundEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if c.capacity > 0 && len(c.events) >= c.capacity {
		c.closed = true
		return false
	}
	c.events = append(c.events, event)
	return true
}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) Events() []models.OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.OutboundEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *MockClient) EventsOfType(typ string) []models.OutboundEvent {
	var out []models.OutboundEvent
	for _, ev := range c.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *MockClient) Last() models.OutboundEvent {
	events := c.Events()
	if len(events) == 0 {
		return models.OutboundEvent{}
	}
	return events[len(events)-1]
}

func (c *MockClient) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}
