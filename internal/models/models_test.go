package models_test

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderchat/backend/internal/models"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{Email: "alice@example.com", PasswordHash: "hash"}
	assert.Empty(t, user.ID)

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
	assert.Equal(t, models.RoleUser, user.Role, "role defaults to user")
}

// TestUserBeforeCreate_PreservesExistingFields verifies that the hook doesn't overwrite a set ID or role.
func TestUserBeforeCreate_PreservesExistingFields(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Role: models.RoleAdmin}

	require.NoError(t, user.BeforeCreate(nil))

	assert.Equal(t, existingID, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.IsAdmin())
}

// TestUserStructTags verifies that the password hash never leaves the server.
func TestUserStructTags(t *testing.T) {
	field, ok := reflect.TypeOf(models.User{}).FieldByName("PasswordHash")
	require.True(t, ok)
	assert.Equal(t, "-", field.Tag.Get("json"))

	field, _ = reflect.TypeOf(models.User{}).FieldByName("Email")
	assert.Contains(t, field.Tag.Get("gorm"), "uniqueIndex")
}

func TestOrderBeforeCreate(t *testing.T) {
	order := &models.Order{Symbol: "  btc-usd ", Type: models.OrderBuy, Quantity: 1}

	require.NoError(t, order.BeforeCreate(nil))

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "BTC-USD", order.Symbol)
	assert.Equal(t, models.OrderPending, order.Status)
}

func TestOrderStatus(t *testing.T) {
	tests := []struct {
		status   models.OrderStatus
		valid    bool
		terminal bool
	}{
		{models.OrderPending, true, false},
		{models.OrderCompleted, true, true},
		{models.OrderCancelled, true, true},
		{"SHIPPED", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, models.IsValidStatus(tt.status))
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestChatHasParticipant(t *testing.T) {
	chat := &models.Chat{Participants: pq.StringArray{"u1", "u2"}}

	assert.True(t, chat.HasParticipant("u1"))
	assert.True(t, chat.HasParticipant("u2"))
	assert.False(t, chat.HasParticipant("u3"))
	assert.False(t, chat.HasParticipant(""))
	assert.False(t, (&models.Chat{}).HasParticipant("u1"))
}

func TestChatBeforeCreate_PreservesExistingID(t *testing.T) {
	chat := &models.Chat{ID: "chat-1"}
	require.NoError(t, chat.BeforeCreate(nil))
	assert.Equal(t, "chat-1", chat.ID)

	msg := &models.Message{}
	require.NoError(t, msg.BeforeCreate(nil))
	assert.NotEmpty(t, msg.ID)
}
