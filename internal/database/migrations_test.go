package database_test

import (
	"testing"
	"time"

	"chat-backend/internal/database"
	"chat-backend/internal/database/versions/migration_0"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMemoryDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func TestNewDatabaseInitializesSchema(t *testing.T) {
	db, err := database.NewDatabase(database.DriverSqlite, "file::memory:")
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&database.User{}))
	assert.True(t, db.Migrator().HasTable(&database.Chat{}))
	assert.True(t, db.Migrator().HasTable(&database.ChatMessage{}))
	assert.True(t, db.Migrator().HasColumn(&database.ChatMessage{}, "metadata"))

	userId := uuid.New()
	require.NoError(t, db.Create(&database.User{Id: userId, Email: "a@x.com"}).Error)
	assert.Error(t, db.Create(&database.User{Id: uuid.New(), Email: "a@x.com"}).Error, "email must be unique")

	require.NoError(t, db.Create(&database.Chat{Id: uuid.New(), UserId: userId}).Error)
	assert.Error(t, db.Create(&database.Chat{Id: uuid.New(), UserId: userId}).Error, "a user owns at most one chat")
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := database.NewDatabase("oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrationFoldsDuplicateChats(t *testing.T) {
	db := openMemoryDB(t)

	legacy := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{ID: "0", Migrate: migration_0.Migration},
	})
	require.NoError(t, legacy.Migrate())

	now := time.Now().UTC()
	userId, oldest, duplicate := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, db.Create(&migration_0.User{Id: userId, Email: "a@x.com", CreatedAt: now}).Error)
	require.NoError(t, db.Create(&migration_0.Chat{Id: oldest, UserId: userId, CreatedAt: now}).Error)
	require.NoError(t, db.Create(&migration_0.Chat{Id: duplicate, UserId: userId, CreatedAt: now.Add(time.Second)}).Error)
	require.NoError(t, db.Create(&migration_0.ChatMessage{ChatId: oldest, Role: "user", Text: "first", CreatedAt: now}).Error)
	require.NoError(t, db.Create(&migration_0.ChatMessage{ChatId: duplicate, Role: "user", Text: "second", CreatedAt: now.Add(time.Second)}).Error)

	require.NoError(t, database.GetMigrator(db).Migrate())

	var chats []database.Chat
	require.NoError(t, db.Find(&chats).Error)
	require.Len(t, chats, 1)
	assert.Equal(t, oldest, chats[0].Id)

	var messages []database.ChatMessage
	require.NoError(t, db.Order("id ASC").Find(&messages).Error)
	require.Len(t, messages, 2)
	for _, msg := range messages {
		assert.Equal(t, oldest, msg.ChatId)
	}

	assert.Error(t, db.Create(&database.Chat{Id: uuid.New(), UserId: userId, CreatedAt: now}).Error)
	assert.True(t, db.Migrator().HasColumn(&database.ChatMessage{}, "metadata"))
}
