package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"chat-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB

	// SQLite only supports one writer at a time, so writes are serialized
	// whenever the store is backed by it.
	serializeWrites bool
	writeLock       sync.Mutex
}

func NewGormStore(db *gorm.DB) *GormStore {
	name := db.Dialector.Name()
	return &GormStore{
		db:              db,
		serializeWrites: name == "sqlite" || name == "sqlite3",
	}
}

func (s *GormStore) lockWrites() func() {
	if !s.serializeWrites {
		return func() {}
	}
	s.writeLock.Lock()
	return s.writeLock.Unlock
}

func (s *GormStore) ResolveChat(ctx context.Context, email string) (ChatRef, error) {
	defer s.lockWrites()()

	var ref ChatRef
	err := s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		user, err := upsertUser(txn, email)
		if err != nil {
			return err
		}

		chat, err := upsertChat(txn, user.Id)
		if err != nil {
			return err
		}

		ref = ChatRef{ChatId: chat.Id.String(), UserId: user.Id.String(), Email: user.Email}
		return nil
	})
	if err != nil {
		return ChatRef{}, err
	}

	return ref, nil
}

// The insert is a no-op when the email already exists; the following select
// then returns whichever row won.
func upsertUser(txn *gorm.DB, email string) (database.User, error) {
	candidate := database.User{Id: uuid.New(), Email: email, CreatedAt: time.Now().UTC()}
	if err := txn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return database.User{}, fmt.Errorf("error upserting user: %w", err)
	}

	var user database.User
	if err := txn.Where("email = ?", email).First(&user).Error; err != nil {
		return database.User{}, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func upsertChat(txn *gorm.DB, userId uuid.UUID) (database.Chat, error) {
	candidate := database.Chat{Id: uuid.New(), UserId: userId, CreatedAt: time.Now().UTC()}
	if err := txn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return database.Chat{}, fmt.Errorf("error upserting chat: %w", err)
	}

	var chat database.Chat
	if err := txn.Where("user_id = ?", userId).First(&chat).Error; err != nil {
		return database.Chat{}, fmt.Errorf("error loading chat: %w", err)
	}
	return chat, nil
}

func (s *GormStore) ListMessages(ctx context.Context, chatId string) ([]Message, error) {
	id, err := uuid.Parse(chatId)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id '%s': %w", chatId, err)
	}

	var rows []database.ChatMessage
	if err := s.db.WithContext(ctx).
		Where("chat_id = ?", id).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error listing chat messages: %w", err)
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, Message{Role: row.Role, Text: row.Text, CreatedAt: row.CreatedAt})
	}
	return messages, nil
}

func (s *GormStore) AppendExchange(ctx context.Context, chatId string, exchange Exchange) error {
	id, err := uuid.Parse(chatId)
	if err != nil {
		return fmt.Errorf("invalid chat id '%s': %w", chatId, err)
	}

	metadata, err := json.Marshal(map[string]string{"generator": exchange.Generator})
	if err != nil {
		return fmt.Errorf("could not marshal metadata: %w", err)
	}

	rows := []database.ChatMessage{
		{ChatId: id, Role: database.RoleUser, Text: exchange.Prompt, CreatedAt: exchange.At},
		{ChatId: id, Role: database.RoleAI, Text: exchange.Answer, CreatedAt: exchange.At, Metadata: datatypes.JSON(metadata)},
	}

	defer s.lockWrites()()

	return s.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Create(&rows).Error; err != nil {
			return fmt.Errorf("error saving chat messages: %w", err)
		}
		return nil
	})
}
