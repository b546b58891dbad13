package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Chat is the support conversation attached to one order.
// Its ID is the canonical realtime room key.
type Chat struct {
	// ID is the chat identifier (UUID) and the room key.
	ID string `gorm:"primaryKey" json:"_id"`
	// OrderID references the order this chat belongs to.
	OrderID string `gorm:"type:text;not null;uniqueIndex" json:"orderId"`
	// Participants lists the user IDs allowed into the chat. Admins are never listed.
	Participants pq.StringArray `gorm:"type:text[]" json:"participants"`
	// IsActive turns false once the order is completed or cancelled.
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate generates a UUID for the chat if none was set.
func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// HasParticipant reports whether userID is listed on the chat.
func (c *Chat) HasParticipant(userID string) bool {
	if userID == "" {
		return false
	}
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
