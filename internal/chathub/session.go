package chathub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/models"
)

// SessionState is the lifecycle position of a connection after its handshake.
type SessionState int32

const (
	StateAuthenticated SessionState = iota + 1
	StateClosed
)

// Session handles the events of one authenticated connection. Handle must be called from a
// single goroutine, in the order events arrive.
type Session struct {
	hub      *ManagerService
	client   Client
	identity auth.Identity
	state    atomic.Int32

	// lastChat is the room targeted by a leave_chat without a chat ID.
	lastChat string
}

func newSession(hub *ManagerService, c Client, identity auth.Identity) *Session {
	s := &Session{hub: hub, client: c, identity: identity}
	s.state.Store(int32(StateAuthenticated))
	return s
}

func (s *Session) Identity() auth.Identity { return s.identity }

func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Close releases the connection's rooms and registry entries. Only the first call has an effect.
func (s *Session) Close() {
	if s.state.CompareAndSwap(int32(StateAuthenticated), int32(StateClosed)) {
		s.hub.disconnect(s.client)
	}
}

// Handle decodes one raw event and dispatches it. A rejected event yields exactly one error
// event on this connection and leaves the connection open.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	if s.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}

	var ev models.InboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return s.reject(newEventError(ErrMalformedEvent, "Invalid message format"), "")
	}

	var err error
	switch ev.Type {
	case models.EventJoinChat:
		err = s.joinChat(ctx, ev)
	case models.EventMessage:
		err = s.sendMessage(ctx, ev)
	case models.EventLeaveChat:
		s.leaveChat(ev)
	default:
		err = ErrUnknownEventType
	}
	if err != nil {
		return s.reject(err, ev.ChatID)
	}
	return nil
}

func (s *Session) reject(err error, chatID string) error {
	if !errors.Is(err, ErrStoreFailure) {
		log.Printf("WARNING: Event from %s rejected: %v", s.identity.Email, err)
	}
	s.client.Send(errorEvent(err, chatID))
	return err
}

func (s *Session) joinChat(ctx context.Context, ev models.InboundEvent) error {
	if ev.ChatID == "" {
		return newEventError(ErrMalformedEvent, "Chat ID is required")
	}

	chat, err := s.hub.resolveRoom(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if !canAccess(s.identity, chat) {
		return ErrAccessDenied
	}

	s.hub.Rooms.Join(s.client, chat.ID)
	s.lastChat = chat.ID
	s.client.Send(joinedEvent(chat.ID))
	return nil
}

func (s *Session) sendMessage(ctx context.Context, ev models.InboundEvent) error {
	if ev.ChatID == "" {
		return newEventError(ErrMalformedEvent, "Chat ID is required")
	}
	if err := validateContent(ev.Content); err != nil {
		return err
	}

	chat, err := s.hub.resolveRoom(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if s.hub.roomClosed(chat) {
		return ErrRoomClosed
	}
	// Admins may post to any room. Everyone else must be a participant and still in the room.
	if !s.identity.IsAdmin() {
		if !chat.HasParticipant(s.identity.UserID) || !s.hub.Registry.IsMember(s.client.ID(), chat.ID) {
			return ErrAccessDenied
		}
	}

	_, err = s.hub.deliver(ctx, s.identity, chat, ev.Content)
	return err
}

func (s *Session) leaveChat(ev models.InboundEvent) {
	chatID := ev.ChatID
	if chatID == "" {
		chatID = s.lastChat
	}
	chatID = s.hub.canonicalRoomKey(chatID)

	if chatID != "" {
		s.hub.Rooms.Leave(s.client, chatID)
	}
	if chatID == s.lastChat {
		s.lastChat = ""
	}

	s.client.Send(models.OutboundEvent{
		Type:    models.EventLeftChat,
		Content: "Left chat room",
		Data:    models.ChatRef{ChatID: chatID},
	})
}

// MaxContentLength caps message content in bytes. It stays well below the websocket
// frame limit so an over-long message is answered with an error event.
const MaxContentLength = 4096

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return newEventError(ErrMalformedEvent, "Message content is required")
	}
	if len(content) > MaxContentLength {
		return newEventError(ErrMalformedEvent, "Message content is too long")
	}
	return nil
}
