package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a persisted chat message.
// CreatedAt is assigned by the store and is what clients see as the send time.
type Message struct {
	ID        string    `gorm:"primaryKey" json:"_id"`
	ChatID    string    `gorm:"type:text;not null;index:idx_chat_msg" json:"chatId"`
	SenderID  string    `gorm:"type:text;not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_chat_msg" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates a UUID for the message if none was set.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
