package chathub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/models"
	"orderchat/backend/internal/storage"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultStoreTimeout     = 5 * time.Second
)

// RoomStore is the slice of storage the realtime hub depends on.
type RoomStore interface {
	FindRoom(ctx context.Context, chatID string) (*models.Chat, error)
	FindRoomByOrderID(ctx context.Context, orderID string) (*models.Chat, error)
	FindActiveRooms(ctx context.Context) ([]models.Chat, error)
	SaveMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error)
}

// IdentityVerifier resolves a bearer token into an identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// Options bounds the hub's blocking calls.
type Options struct {
	HandshakeTimeout time.Duration
	StoreTimeout     time.Duration
}

// ManagerService ties the connection registry and the room broadcaster to the store. It is
// safe for concurrent use by any number of connection goroutines and HTTP handlers.
type ManagerService struct {
	Registry *Registry
	Rooms    *Broadcaster

	store    RoomStore
	verifier IdentityVerifier

	handshakeTimeout time.Duration
	storeTimeout     time.Duration

	indexMu     sync.RWMutex
	orderToChat map[string]string
}

// NewManagerService creates a hub. Zero timeouts fall back to the defaults.
func NewManagerService(store RoomStore, verifier IdentityVerifier, opts Options) *ManagerService {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}

	registry := NewRegistry()
	return &ManagerService{
		Registry:         registry,
		Rooms:            NewBroadcaster(registry),
		store:            store,
		verifier:         verifier,
		handshakeTimeout: opts.HandshakeTimeout,
		storeTimeout:     opts.StoreTimeout,
		orderToChat:      make(map[string]string),
	}
}

// Authenticate performs the connection handshake. On success c is registered under the
// token owner's identity, rejoined to its active rooms, and a Session is returned that
// accepts events. On failure nothing is registered.
func (m *ManagerService) Authenticate(ctx context.Context, c Client, token string) (*Session, error) {
	if token == "" {
		return nil, ErrAuthenticationRequired
	}

	hctx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	identity, err := m.verifier.Verify(hctx, token)
	cancel()
	if err != nil {
		log.Printf("WARNING: Handshake rejected for connection %s: %v", c.ID(), err)
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	m.Registry.Register(identity, c)
	s := newSession(m, c, identity)
	log.Printf("INFO: Connection %s authenticated as %s (%s)", c.ID(), identity.Email, identity.Role)

	m.rejoinRooms(ctx, s)
	return s, nil
}

// disconnect removes every trace of c from the hub.
func (m *ManagerService) disconnect(c Client) {
	rooms := m.Rooms.LeaveAll(c)
	m.Registry.Unregister(c)
	log.Printf("INFO: Connection %s disconnected, left %d room(s)", c.ID(), len(rooms))
}

// NotifyRoomClosed marks the chat closed and tells its current members. It returns the
// number of connections notified.
func (m *ManagerService) NotifyRoomClosed(chatID string) int {
	chatID = m.canonicalRoomKey(chatID)
	m.Rooms.MarkClosed(chatID)

	n := m.Rooms.Broadcast(chatID, models.OutboundEvent{
		Type:    models.EventChatClosed,
		Content: "Chat closed by admin",
		Data:    models.ChatRef{ChatID: chatID},
	})
	log.Printf("INFO: Chat %s closed, notified %d connection(s)", chatID, n)
	return n
}

// RegisterAndRoute binds email to c, joins c to chat and acknowledges the join. It returns
// false if c is not a live connection.
func (m *ManagerService) RegisterAndRoute(email string, c Client, chat *models.Chat) bool {
	if chat == nil || !m.Registry.BindEmail(email, c) {
		return false
	}
	m.indexOrder(chat.OrderID, chat.ID)
	if !m.Rooms.Join(c, chat.ID) {
		return false
	}
	c.Send(joinedEvent(chat.ID))
	return true
}

// AttachOrderChat routes a freshly created order chat to the ordering user's connection and
// to every connected admin. It reports whether the user was attached and how many admins were.
func (m *ManagerService) AttachOrderChat(userEmail string, chat *models.Chat) (bool, int) {
	userAttached := false
	if c, ok := m.Registry.LookupByEmail(userEmail); ok {
		userAttached = m.RegisterAndRoute(userEmail, c, chat)
	}

	admins := 0
	for email, c := range m.Registry.AdminHolders() {
		if m.RegisterAndRoute(email, c, chat) {
			admins++
		}
	}
	return userAttached, admins
}

// PostMessage persists and broadcasts a message on behalf of identity without requiring a
// realtime connection. Access is checked against the stored participant list.
func (m *ManagerService) PostMessage(ctx context.Context, identity auth.Identity, chatKey, content string) (*models.Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	chat, err := m.resolveRoom(ctx, chatKey)
	if err != nil {
		return nil, err
	}
	if m.roomClosed(chat) {
		return nil, ErrRoomClosed
	}
	if !canAccess(identity, chat) {
		return nil, ErrAccessDenied
	}
	return m.deliver(ctx, identity, chat, content)
}

// deliver stores the message and only then broadcasts it to the room.
func (m *ManagerService) deliver(ctx context.Context, identity auth.Identity, chat *models.Chat, content string) (*models.Message, error) {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	msg, err := m.store.SaveMessage(sctx, chat.ID, identity.UserID, content)
	if err != nil {
		log.Printf("ERROR: Failed to save message in chat %s: %v", chat.ID, err)
		return nil, newEventError(ErrStoreFailure, "Error sending message")
	}

	m.Rooms.Broadcast(chat.ID, models.OutboundEvent{Type: models.EventNewMessage, Data: msg})
	return msg, nil
}

// resolveRoom looks a room up by chat ID, falling back to the order ID it belongs to.
func (m *ManagerService) resolveRoom(ctx context.Context, key string) (*models.Chat, error) {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	key = m.canonicalRoomKey(key)
	chat, err := m.store.FindRoom(sctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		chat, err = m.store.FindRoomByOrderID(sctx, key)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to load chat %s: %v", key, err)
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	m.indexOrder(chat.OrderID, chat.ID)
	return chat, nil
}

func (m *ManagerService) roomClosed(chat *models.Chat) bool {
	return !chat.IsActive || m.Rooms.IsClosed(chat.ID)
}

func (m *ManagerService) indexOrder(orderID, chatID string) {
	if orderID == "" || chatID == "" {
		return
	}
	m.indexMu.Lock()
	m.orderToChat[orderID] = chatID
	m.indexMu.Unlock()
}

// canonicalRoomKey maps a known order ID to its chat ID. Any other key is returned unchanged.
func (m *ManagerService) canonicalRoomKey(key string) string {
	m.indexMu.RLock()
	defer m.indexMu.RUnlock()
	if chatID, ok := m.orderToChat[key]; ok {
		return chatID
	}
	return key
}

// WarmRoomIndex loads the active rooms at startup so order IDs resolve without a store
// round trip. It returns the number of rooms indexed.
func (m *ManagerService) WarmRoomIndex(ctx context.Context) (int, error) {
	log.Println("INFO: Loading active chats...")

	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	chats, err := m.store.FindActiveRooms(sctx)
	if err != nil {
		log.Printf("ERROR: Failed to retrieve active chats: %v", err)
		return 0, err
	}
	for _, chat := range chats {
		m.indexOrder(chat.OrderID, chat.ID)
	}

	log.Printf("INFO: Indexed %d active chat(s)", len(chats))
	return len(chats), nil
}

func canAccess(identity auth.Identity, chat *models.Chat) bool {
	return identity.IsAdmin() || chat.HasParticipant(identity.UserID)
}

func joinedEvent(chatID string) models.OutboundEvent {
	return models.OutboundEvent{
		Type:    models.EventJoinedChat,
		Content: "Successfully joined chat",
		Data:    models.ChatRef{ChatID: chatID},
	}
}
