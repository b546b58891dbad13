package models

// Inbound event types sent by clients.
const (
	EventJoinChat  = "join_chat"
	EventMessage   = "message"
	EventLeaveChat = "leave_chat"
)

// Outbound event types sent by the server.
const (
	EventJoinedChat    = "joined_chat"
	EventLeftChat      = "left_chat"
	EventNewMessage    = "new_message"
	EventError         = "error"
	EventChatClosed    = "chat_closed"
	EventRejoinedRooms = "rejoined_rooms"
)

// InboundEvent is the envelope a client sends over the realtime connection.
// The sender is always taken from the authenticated connection, so no sender field is decoded.
type InboundEvent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId,omitempty"`
	Content string `json:"content,omitempty"`
}

// OutboundEvent is the envelope the server sends to a connection.
type OutboundEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ChatRef identifies the chat an acknowledgement or notice refers to.
type ChatRef struct {
	ChatID string `json:"chatId"`
}

// RoomList is the payload of a rejoined_rooms event.
type RoomList struct {
	Rooms []string `json:"rooms"`
}

// ErrorDetail is the payload of an error event.
type ErrorDetail struct {
	Code   string `json:"code"`
	ChatID string `json:"chatId,omitempty"`
}
