package chathub

import (
	"errors"

	"orderchat/backend/internal/models"
)

var (
	// ErrAuthenticationRequired is returned by the handshake when no token was supplied.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrAuthenticationFailed is returned by the handshake when the token does not verify.
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrAccessDenied     = errors.New("access denied")
	ErrChatNotFound     = errors.New("chat not found")
	ErrRoomClosed       = errors.New("chat closed by admin")
	ErrMalformedEvent   = errors.New("invalid message format")
	ErrUnknownEventType = errors.New("unknown message type")
	ErrStoreFailure     = errors.New("store failure")
	ErrNotAuthenticated = errors.New("connection is not authenticated")
)

// eventError carries the client-facing text for a rejected event.
type eventError struct {
	kind error
	text string
}

func (e *eventError) Error() string { return e.kind.Error() + ": " + e.text }
func (e *eventError) Unwrap() error { return e.kind }

func newEventError(kind error, text string) error {
	return &eventError{kind: kind, text: text}
}

// errorEvent converts a per-event error into the single error event sent back to the
// offending connection.
func errorEvent(err error, chatID string) models.OutboundEvent {
	code, text := "internal", "Internal error"
	switch {
	case errors.Is(err, ErrAccessDenied):
		code, text = "access_denied", "Access denied"
	case errors.Is(err, ErrChatNotFound):
		code, text = "not_found", "Chat not found"
	case errors.Is(err, ErrRoomClosed):
		code, text = "room_closed", "Chat closed by admin"
	case errors.Is(err, ErrMalformedEvent):
		code, text = "malformed_event", "Invalid message format"
	case errors.Is(err, ErrUnknownEventType):
		code, text = "unknown_event", "Unknown message type"
	case errors.Is(err, ErrStoreFailure):
		code, text = "store_failure", "Temporary storage error, please retry"
	}

	var ee *eventError
	if errors.As(err, &ee) {
		text = ee.text
	}

	return models.OutboundEvent{
		Type:    models.EventError,
		Content: text,
		Data:    models.ErrorDetail{Code: code, ChatID: chatID},
	}
}
