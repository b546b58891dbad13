// Package storagetest provides an in-memory SQLite backed storage.Service for tests.
package storagetest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"orderchat/backend/internal/models"
	"orderchat/backend/internal/storage"
)

// chatsDDL mirrors models.Chat. SQLite has no array type, so participants are stored as
// the text form pq.StringArray produces.
const chatsDDL = `CREATE TABLE chats (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL UNIQUE,
	participants TEXT,
	is_active NUMERIC,
	created_at DATETIME,
	updated_at DATETIME
)`

// NewDB creates an in-memory SQLite database with every table the service uses.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Order{}, &models.Message{}))
	require.NoError(t, db.Exec(chatsDDL).Error)
	return db
}

// NewService returns a storage.Service on a fresh database, without Redis.
func NewService(t testing.TB) *storage.Service {
	t.Helper()
	return storage.NewStorageService(NewDB(t), nil)
}
