package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// OrderType is the trade direction.
type OrderType string

const (
	OrderBuy  OrderType = "BUY"
	OrderSell OrderType = "SELL"
)

// Order is a trade request placed by a user. Each order owns exactly one Chat.
type Order struct {
	ID        string      `gorm:"primaryKey" json:"_id"`
	UserID    string      `gorm:"type:text;not null;index" json:"userId"`
	Symbol    string      `gorm:"type:text;not null" json:"symbol"`
	Quantity  int         `gorm:"not null" json:"quantity"`
	Price     float64     `gorm:"not null" json:"price"`
	Type      OrderType   `gorm:"type:text;not null" json:"type"`
	Status    OrderStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// BeforeCreate assigns an ID, normalizes the symbol and defaults the status.
func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	if o.Status == "" {
		o.Status = OrderPending
	}
	return
}

// IsValidStatus reports whether s is one of the known order statuses.
func IsValidStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether an order in this status has finished and its chat must close.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}
