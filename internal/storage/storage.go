// Package storage persists users, orders, chats and messages in PostgreSQL via gorm,
// and carries cross-process room notices over Redis pub/sub.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"orderchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RoomClosedChannel is the Redis channel on which closed chat IDs are announced.
const RoomClosedChannel = "orderchat:room_closed"

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already exists")
	// ErrNoPubSub is returned by pub/sub operations when Redis is not configured.
	ErrNoPubSub = errors.New("redis is not configured")
)

// Storage is the datastore used by the HTTP layer, the admin CLI and the chat hub.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EnsureAdmin(ctx context.Context, email, passwordHash string) (bool, error)

	CreateOrderWithChat(ctx context.Context, order *models.Order) (*models.Chat, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, *models.Chat, error)

	FindRoom(ctx context.Context, chatID string) (*models.Chat, error)
	FindRoomByOrderID(ctx context.Context, orderID string) (*models.Chat, error)
	FindActiveRooms(ctx context.Context) ([]models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)

	SaveMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error)
	GetChatHistory(ctx context.Context, chatID string) ([]models.Message, error)

	PublishRoomClosed(ctx context.Context, chatID string) error
	SubscribeRoomClosed(ctx context.Context) (<-chan string, error)
}

// Service implements Storage on top of gorm and an optional Redis client.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Chat{},
		&models.Message{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateUser stores a new account. Emails are normalized to lower case.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return s.DB.WithContext(ctx).Create(user).Error
}

// GetUserByID returns the account with the given ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByEmail returns the account registered under email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// EnsureAdmin creates the admin account if no account uses email yet.
// It reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	var user models.User
	defaults := models.User{
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}

	result := s.DB.WithContext(ctx).Where("email = ?", defaults.Email).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Printf("ERROR: Failed to seed admin %s: %v", email, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateOrderWithChat stores the order and its active chat in one transaction.
// The ordering user is the chat's only participant.
func (s *Service) CreateOrderWithChat(ctx context.Context, order *models.Order) (*models.Chat, error) {
	var chat *models.Chat
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		chat = &models.Chat{
			OrderID:      order.ID,
			Participants: []string{order.UserID},
			IsActive:     true,
		}
		return tx.Create(chat).Error
	})
	if err != nil {
		log.Printf("ERROR: Failed to create order for user %s: %v", order.UserID, err)
		return nil, err
	}
	return chat, nil
}

// GetOrderByID returns the order with the given ID.
func (s *Service) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// ListOrders returns the orders of userID, newest first. An empty userID lists every order.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	q := s.DB.WithContext(ctx).Order("created_at desc")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus changes the order status. When the new status is terminal the order's
// chat is deactivated in the same transaction and returned; otherwise the chat is nil.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, *models.Chat, error) {
	var (
		order models.Order
		chat  *models.Chat
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&order).Update("status", status).Error; err != nil {
			return err
		}
		order.Status = status
		if !status.IsTerminal() {
			return nil
		}

		var c models.Chat
		if err := tx.Where("order_id = ?", orderID).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Model(&c).Update("is_active", false).Error; err != nil {
			return err
		}
		c.IsActive = false
		chat = &c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, chat, nil
}

// FindRoom returns the chat with the given ID.
func (s *Service) FindRoom(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.DB.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error; err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

// FindRoomByOrderID returns the chat that belongs to orderID.
func (s *Service) FindRoomByOrderID(ctx context.Context, orderID string) (*models.Chat, error) {
	var chat models.Chat
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&chat).Error; err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

// FindActiveRooms returns every chat whose order is still open.
func (s *Service) FindActiveRooms(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("created_at asc").Find(&chats).Error; err != nil {
		log.Printf("ERROR: Failed to retrieve active chats: %v", err)
		return nil, err
	}
	return chats, nil
}

// ListChats returns every chat, newest first.
func (s *Service) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := s.DB.WithContext(ctx).Order("created_at desc").Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

// ListChatsForUser returns the chats userID participates in, newest first.
func (s *Service) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	q := s.DB.WithContext(ctx).Order("created_at desc")
	if s.DB.Dialector.Name() == "postgres" {
		q = q.Where("? = ANY(participants)", userID)
	} else {
		// Without array support participants is stored in its text form.
		q = q.Where("participants LIKE ?", "%"+userID+"%")
	}

	var candidates []models.Chat
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}
	chats := make([]models.Chat, 0, len(candidates))
	for _, c := range candidates {
		if c.HasParticipant(userID) {
			chats = append(chats, c)
		}
	}
	return chats, nil
}

// SaveMessage persists a message and returns it with its server-assigned ID and timestamp.
func (s *Service) SaveMessage(ctx context.Context, chatID, senderID, content string) (*models.Message, error) {
	msg := &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for chat %s: %v", chatID, err)
		return nil, err
	}
	return msg, nil
}

// GetChatHistory returns the chat's messages in the order they were sent.
func (s *Service) GetChatHistory(ctx context.Context, chatID string) ([]models.Message, error) {
	var history []models.Message
	if err := s.DB.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at asc").Find(&history).Error; err != nil {
		log.Printf("ERROR: Failed to get chat history for chat %s: %v", chatID, err)
		return nil, err
	}
	return history, nil
}

// PublishRoomClosed announces a closed chat to every process listening on Redis.
func (s *Service) PublishRoomClosed(ctx context.Context, chatID string) error {
	if s.Redis == nil {
		return ErrNoPubSub
	}
	return s.Redis.Publish(ctx, RoomClosedChannel, chatID).Err()
}

// SubscribeRoomClosed streams chat IDs published on RoomClosedChannel until ctx is done.
func (s *Service) SubscribeRoomClosed(ctx context.Context) (<-chan string, error) {
	if s.Redis == nil {
		return nil, ErrNoPubSub
	}

	pubsub := s.Redis.Subscribe(ctx, RoomClosedChannel)
	// Wait for the subscription confirmation so a broken Redis fails here, not silently later.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", RoomClosedChannel, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
