// Package telegram alerts support staff through the Telegram Bot API when an order is
// placed while no admin is connected to pick up its chat.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"orderchat/backend/internal/models"
)

// Notifier alerts staff about an order nobody is watching yet.
type Notifier interface {
	NotifyUnattendedOrder(ctx context.Context, order *models.Order, chat *models.Chat) error
}

// BotNotifier posts alerts to one Telegram chat.
type BotNotifier struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
}

// NewBotNotifier authorizes the bot against the public Telegram API.
func NewBotNotifier(token string, chatID int64) (*BotNotifier, error) {
	return NewBotNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID)
}

// NewBotNotifierWithEndpoint authorizes the bot against a custom Bot API endpoint, given as a
// format string with the token and method placeholders.
func NewBotNotifierWithEndpoint(token, endpoint string, chatID int64) (*BotNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("INFO: Telegram notifier authorized on account %s", bot.Self.UserName)

	return &BotNotifier{BotAPI: bot, ChatID: chatID}, nil
}

// NotifyUnattendedOrder sends a plain-text alert describing order.
func (n *BotNotifier) NotifyUnattendedOrder(ctx context.Context, order *models.Order, chat *models.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.ChatID, formatOrderAlert(order, chat))
	if _, err := n.BotAPI.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram alert for order %s: %v", order.ID, err)
		return err
	}
	return nil
}

func formatOrderAlert(order *models.Order, chat *models.Chat) string {
	var b strings.Builder
	b.WriteString("New order without an online admin\n")
	fmt.Fprintf(&b, "Order: %s\n", order.ID)
	fmt.Fprintf(&b, "%s %d %s @ %.2f\n", order.Type, order.Quantity, order.Symbol, order.Price)
	if chat != nil {
		fmt.Fprintf(&b, "Chat: %s", chat.ID)
	}
	return b.String()
}
