// Package handler exposes the HTTP and websocket surface of the order chat service.
package handler

import (
	"context"
	"time"

	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/chathub"
	"orderchat/backend/internal/storage"
	"orderchat/backend/internal/telegram"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultNotifyTimeout  = 10 * time.Second
)

// Handler holds everything the routes need.
type Handler struct {
	Hub       *chathub.ManagerService
	Store     storage.Storage
	Tokens    *auth.TokenManager
	Verifier  chathub.IdentityVerifier
	Passwords *auth.PasswordHasher
	// Notifier is optional. When set it is told about orders placed while no admin is online.
	Notifier telegram.Notifier

	RequestTimeout time.Duration
	// NotifyTimeout bounds a single staff alert, which runs outside the request.
	NotifyTimeout time.Duration
}

func NewHandler(hub *chathub.ManagerService, store storage.Storage, tokens *auth.TokenManager, verifier chathub.IdentityVerifier) *Handler {
	return &Handler{
		Hub:            hub,
		Store:          store,
		Tokens:         tokens,
		Verifier:       verifier,
		Passwords:      auth.NewPasswordHasher(),
		RequestTimeout: defaultRequestTimeout,
		NotifyTimeout:  defaultNotifyTimeout,
	}
}

func (h *Handler) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, h.RequestTimeout)
}
